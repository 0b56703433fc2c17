package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/lumenv/internal/adapters/detector"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		isTTY    bool
		ci       string
		expected detector.LogFormat
	}{
		{"terminal", true, "", detector.FormatPretty},
		{"terminal with CI=false", true, "false", detector.FormatPretty},
		{"terminal in CI", true, "true", detector.FormatJSON},
		{"terminal with CI=1", true, "1", detector.FormatJSON},
		{"pipe", false, "", detector.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.Detect(tt.isTTY, tt.ci))
		})
	}
}

func TestDetectEnvironment_CI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.Equal(t, detector.FormatJSON, detector.DetectEnvironment())
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		detected detector.LogFormat
		flag     string
		expected detector.LogFormat
	}{
		{detector.FormatJSON, "pretty", detector.FormatPretty},
		{detector.FormatPretty, "json", detector.FormatJSON},
		{detector.FormatPretty, "auto", detector.FormatPretty},
		{detector.FormatJSON, "", detector.FormatJSON},
		{detector.FormatPretty, "unknown", detector.FormatPretty},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.ResolveFormat(tt.detected, tt.flag))
		})
	}
}
