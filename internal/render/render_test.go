package render_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/render"
	"gopkg.in/yaml.v3"
)

func testSnapshot() *domain.Snapshot {
	return domain.NewSnapshot("ml", "linux-64", nil, []domain.ResolvedPackage{
		{
			Manager: domain.ManagerPip, Name: "requests", Version: "2.31.0", Extras: []string{"socks"},
			URL: "https://files.example/requests-2.31.0-py3-none-any.whl", SHA256: "58cd2187c01e70e6e26505bca751777aa9f2ee0b7f4300988b709f44e013003f",
		},
		{Manager: domain.ManagerPip, Name: "numpy", Version: "1.26.4"},
		{
			Manager: domain.ManagerConda, Name: "samtools", Version: "1.19", Build: "h50ea8bc_1", Channel: "bioconda",
			URL: "https://conda.example/bioconda/linux-64/samtools-1.19-h50ea8bc_1.tar.bz2", SHA256: "abc123",
		},
		{Manager: domain.ManagerConda, Name: "python", Version: "3.11.8", Channel: "conda-forge"},
	})
}

type goldenData struct {
	Digest string
}

func digestOf(t *testing.T, s *domain.Snapshot) goldenData {
	t.Helper()
	d, err := s.Digest()
	require.NoError(t, err)
	return goldenData{Digest: d.String()}
}

func TestRequirements(t *testing.T) {
	snap := testSnapshot()
	out, err := render.Requirements(snap)
	require.NoError(t, err)

	g := goldie.New(t)
	g.AssertWithTemplate(t, "requirements", digestOf(t, snap), out)
}

func TestCondaExplicit(t *testing.T) {
	snap := testSnapshot()
	out, err := render.CondaExplicit(snap)
	require.NoError(t, err)

	g := goldie.New(t)
	g.AssertWithTemplate(t, "conda_explicit", digestOf(t, snap), out)
}

func TestCondaEnvironment(t *testing.T) {
	out, err := render.CondaEnvironment(testSnapshot(), []string{"conda-forge"})
	require.NoError(t, err)

	var env struct {
		Name         string   `yaml:"name"`
		Channels     []string `yaml:"channels"`
		Dependencies []any    `yaml:"dependencies"`
	}
	require.NoError(t, yaml.Unmarshal(out, &env))

	assert.Equal(t, "ml", env.Name)
	assert.Equal(t, []string{"conda-forge", "bioconda"}, env.Channels)
	require.Len(t, env.Dependencies, 4)
	assert.Equal(t, "python=3.11.8", env.Dependencies[0])
	assert.Equal(t, "samtools=1.19=h50ea8bc_1", env.Dependencies[1])
	assert.Equal(t, "pip", env.Dependencies[2])
	assert.Equal(t, map[string]any{
		"pip": []any{"numpy==1.26.4", "requests[socks]==2.31.0"},
	}, env.Dependencies[3])
}

func TestCondaEnvironment_CondaOnly(t *testing.T) {
	snap := domain.NewSnapshot("bio", "linux-64", nil, []domain.ResolvedPackage{
		{Manager: domain.ManagerConda, Name: "samtools", Version: "1.19"},
	})
	out, err := render.CondaEnvironment(snap, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "- conda-forge")
	assert.NotContains(t, string(out), "pip")
}
