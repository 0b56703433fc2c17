package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/core/domain"
)

func TestConstraint_Matches(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"==1.2.*", "1.2.9", true},
		{"==1.2.*", "1.2", true},
		{"==1.2.*", "1.3.0", false},
		{"=1.2", "1.2.5", true},
		{"=1.2", "1.20", false},
		{"1.2.*", "1.2.1", true},
		{"==1.2.3", "1.2.3", true},
		{"==1.2.3", "1.2.4", false},
		{"!=1.3", "1.3", false},
		{"!=1.3", "1.4", true},
		{"!=1.3.*", "1.3.2", false},
		{">=1.0,<2", "1.5", true},
		{">=1.0,<2", "2.0", false},
		{">1.0", "1.0", false},
		{"<=1.0", "1.0", true},
		{"~=1.4.2", "1.4.5", true},
		{"~=1.4.2", "1.4.1", false},
		{"~=1.4.2", "1.5.0", false},
		{"~=1.4", "1.9", true},
		{"~=1.4", "2.0", false},
		{"*", "0.1", true},
		{"==1.0", "1.0+cpu", true},
		{"==1.0+cpu", "1.0+gpu", false},
		{"!=1.0", "1.0+cpu", false},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+" "+tt.version, func(t *testing.T) {
			c, err := domain.ParseConstraint(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Matches(domain.ParseVersion(tt.version)))
		})
	}
}

func TestParseConstraint_Errors(t *testing.T) {
	for _, input := range []string{">=", "~=1", ">=1.0,", "==1|2"} {
		t.Run(input, func(t *testing.T) {
			_, err := domain.ParseConstraint(input)
			require.Error(t, err)
			assert.ErrorContains(t, err, domain.ErrInvalidVersion.Error())
		})
	}
}

func TestParseConstraint_Whitespace(t *testing.T) {
	c, err := domain.ParseConstraint(" >= 1.0 , < 2 ")
	require.NoError(t, err)
	assert.Equal(t, domain.Constraint{
		{Op: domain.OpGreaterEqual, Version: "1.0"},
		{Op: domain.OpLess, Version: "2"},
	}, c)
	assert.Equal(t, ">=1.0,<2", c.String())
}

func TestConstraint_AllowsPrerelease(t *testing.T) {
	c, err := domain.ParseConstraint(">=2.0rc1")
	require.NoError(t, err)
	assert.True(t, c.AllowsPrerelease())

	c, err = domain.ParseConstraint(">=2.0,<3")
	require.NoError(t, err)
	assert.False(t, c.AllowsPrerelease())
}

func TestConstraint_Satisfiable(t *testing.T) {
	tests := []struct {
		constraint string
		want       bool
	}{
		{">=1.0,<2", true},
		{">=2,<1", false},
		{">=1,<=1", true},
		{">1,<=1", false},
		{"==1.0,==2.0", false},
		{"==1.0,==1.0.0", true},
		{"==1.5,>=1.0,<2", true},
		{"==2.5,<2", false},
		{"=1.2,=1.3", false},
		{"=1.2,==1.2.*", true},
		{"~=1.4,<1.4", false},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			c, err := domain.ParseConstraint(tt.constraint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Satisfiable())
		})
	}
}

func TestConstraint_Intersect(t *testing.T) {
	a, err := domain.ParseConstraint(">=1.20")
	require.NoError(t, err)
	b, err := domain.ParseConstraint(">=1.20,<2")
	require.NoError(t, err)

	assert.Equal(t, ">=1.20,<2", a.Intersect(b).String())
}

func TestConstraint_Canonical(t *testing.T) {
	a, err := domain.ParseConstraint(">=1.20,<2,!=1.9,!=1.10")
	require.NoError(t, err)
	b, err := domain.ParseConstraint("!=1.10,<2,!=1.9,>=1.20")
	require.NoError(t, err)

	assert.Equal(t, "!=1.9,!=1.10,<2,>=1.20", a.Canonical().String())
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, ">=1.20,<2,!=1.9,!=1.10", a.String())
	assert.Empty(t, domain.Constraint(nil).Canonical())
}

func TestConstraint_Pinned(t *testing.T) {
	c, err := domain.ParseConstraint("==1.2.3")
	require.NoError(t, err)
	v, ok := c.Pinned()
	assert.True(t, ok)
	assert.Equal(t, "1.2.3", v)

	c, err = domain.ParseConstraint("==1.2.*")
	require.NoError(t, err)
	_, ok = c.Pinned()
	assert.False(t, ok)
}
