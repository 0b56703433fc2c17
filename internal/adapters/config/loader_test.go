package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/adapters/config"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func createFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), domain.PrivateFilePerm)
	require.NoError(t, err)
}

func TestLoader_Load_YAML(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, `
version: "1"
platform: linux-64
conda_channels: [conda-forge, bioconda]
image: ghcr.io/acme/flows:2024.1
channels:
  ml:
    conda:
      - python=3.11
      - bioconda::samtools>=1.19
    pip:
      - numpy>=1.20,<2
      - Requests[socks]
  base:
    extras: true
`)

	m, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, m.Root)
	assert.Equal(t, "linux-64", m.Platform)
	assert.Equal(t, []string{"conda-forge", "bioconda"}, m.CondaChannels)
	assert.Equal(t, "ghcr.io/acme/flows:2024.1", m.Image)
	assert.Equal(t, config.DefaultRunner, m.Runner)
	assert.Equal(t, []string{"base", "ml"}, m.ChannelNames())

	ml := m.Channels["ml"]
	require.Len(t, ml.Packages, 4)
	assert.Equal(t, domain.ManagerConda, ml.Packages[0].Manager)
	assert.Equal(t, "python", ml.Packages[0].Name)
	assert.Equal(t, "bioconda", ml.Packages[1].Channel)
	assert.Equal(t, domain.ManagerPip, ml.Packages[2].Manager)
	assert.Len(t, ml.Packages[2].Constraint, 2)
	assert.Equal(t, "requests", ml.Packages[3].Name)
	assert.Equal(t, []string{"socks"}, ml.Packages[3].Extras)
	assert.False(t, ml.Extras)

	assert.True(t, m.Channels["base"].Extras)
	assert.Empty(t, m.Channels["base"].Packages)
}

func TestLoader_Load_JSONC(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.JSONCConfigFileName, `{
  // shared image for every flow
  "image": "flows:latest",
  "runner": ["python3", "-m"],
  "channels": {
    "etl": {
      "pip": ["pandas==2.2.*"], /* pinned minor */
    },
  },
}`)

	m, err := newLoader(t).Load(root)
	require.NoError(t, err)

	assert.Equal(t, "flows:latest", m.Image)
	assert.Equal(t, []string{"python3", "-m"}, m.Runner)
	assert.Equal(t, []string{domain.DefaultCondaChannel}, m.CondaChannels)
	assert.Equal(t, domain.PlatformFor(runtime.GOOS, runtime.GOARCH), m.Platform)
	require.Len(t, m.Channels["etl"].Packages, 1)
	assert.Equal(t, "pandas", m.Channels["etl"].Packages[0].Name)
}

func TestLoader_Load_YAMLWinsOverJSONC(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, "image: from-yaml\n")
	createFile(t, root, domain.JSONCConfigFileName, `{"image": "from-jsonc"}`)

	m, err := newLoader(t).Load(root)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", m.Image)
}

func TestLoader_Load_WalksUp(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, "image: parent\n")
	nested := filepath.Join(root, "flows", "etl")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))

	m, err := newLoader(t).Load(nested)
	require.NoError(t, err)
	assert.Equal(t, root, m.Root)
	assert.Equal(t, "parent", m.Image)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{
			name:    "yaml syntax",
			file:    domain.ConfigFileName,
			content: "channels: [unclosed",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "jsonc syntax",
			file:    domain.JSONCConfigFileName,
			content: `{"channels": `,
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "invalid channel name",
			file:    domain.ConfigFileName,
			content: "channels:\n  \"ml/gpu\":\n    pip: [torch]\n",
			wantErr: domain.ErrInvalidChannelName,
		},
		{
			name:    "invalid spec",
			file:    domain.ConfigFileName,
			content: "channels:\n  ml:\n    pip: [\"torch @ https://example.com/torch.whl\"]\n",
			wantErr: domain.ErrInvalidPackageSpec,
		},
		{
			name:    "contradictory specs",
			file:    domain.ConfigFileName,
			content: "channels:\n  ml:\n    pip: [\"numpy>=2\", \"numpy<1.5\"]\n",
			wantErr: domain.ErrUnsatisfiable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			createFile(t, root, tt.file, tt.content)

			_, err := newLoader(t).Load(root)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr.Error())
		})
	}
}

func TestLoader_Load_NotFound(t *testing.T) {
	_, err := newLoader(t).Load(t.TempDir())
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoader_Load_WarnsOnEmptyChannel(t *testing.T) {
	root := t.TempDir()
	createFile(t, root, domain.ConfigFileName, "channels:\n  empty: {}\n")

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("channel empty declares no packages").Times(1)

	m, err := config.NewLoader(mockLogger).Load(root)
	require.NoError(t, err)
	assert.Contains(t, m.Channels, "empty")
}

func TestWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "flows", "train")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lumenv.yaml"), []byte("version: \"1\"\n"), 0o600))
	t.Chdir(nested)

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	got, err := config.WorkspaceRoot(config.NewLoader(log))
	require.NoError(t, err)
	assert.Equal(t, root, got)

	empty := t.TempDir()
	t.Chdir(empty)
	got, err = config.WorkspaceRoot(config.NewLoader(log))
	require.NoError(t, err)
	assert.Equal(t, empty, got)
}
