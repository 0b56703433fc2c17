package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/lumenv/internal/adapters/telemetry"
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/lumenv/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newApplication(ctrl *gomock.Controller, loader ports.ConfigLoader, log ports.Logger) *app.App {
	return app.New(
		loader,
		mocks.NewMockChannelResolver(ctrl),
		mocks.NewMockSnapshotStore(ctrl),
		mocks.NewMockChannelIndex(ctrl),
		mocks.NewMockDeploymentStore(ctrl),
		nil,
		telemetry.NewNoOpTracer(),
		log,
	)
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockLogger := mocks.NewMockLogger(ctrl)
	application := newApplication(ctrl, mocks.NewMockConfigLoader(ctrl), mockLogger)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{
			App:    application,
			Logger: mockLogger,
		}, func() {}, nil
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Chdir(t.TempDir())

	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLoader.EXPECT().Load(gomock.Any()).Return(nil, errors.New("load failed"))

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Error(gomock.Any()).Times(1)

	application := newApplication(ctrl, mockLoader, mockLogger)
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: mockLogger}, func() {}, nil
	}

	exitCode := run(context.Background(), []string{"resolve"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}

func TestExitCode(t *testing.T) {
	jobErr := zerr.With(zerr.Wrap(domain.ErrJobFailed, "exit status 3"), "exit_code", 3)

	assert.Equal(t, 3, exitCode(jobErr))
	assert.Equal(t, 3, exitCode(zerr.With(jobErr, "module", "pkg.flow")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(domain.ErrJobFailed))

	// Only the sentinel in the chain counts, not a matching message.
	lookalike := zerr.With(zerr.New("step failed: job failed"), "exit_code", 4)
	assert.Equal(t, 1, exitCode(lookalike))
}
