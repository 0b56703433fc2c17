package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

const (
	// EnvExtraConda lists extra conda packages for a job.
	EnvExtraConda = "EXTRA_CONDA_PACKAGES"
	// EnvExtraPip lists extra pip packages for a job.
	EnvExtraPip = "EXTRA_PIP_PACKAGES"

	// EnvSnapshot carries the digest of the snapshot a job runs against.
	EnvSnapshot = "LUMENV_SNAPSHOT"
	// EnvChannel carries the channel reference a job was launched with.
	EnvChannel = "LUMENV_CHANNEL"
	// EnvFlowModule carries the module path of the flow a job runs.
	EnvFlowModule = "LUMENV_FLOW_MODULE"
	// EnvMount carries the path of a mounted snapshot export inside the job.
	EnvMount = "LUMENV_MOUNT"
)

// DefaultExtrasChannel is the channel the EXTRA_* packages are published to
// when no channel is named.
const DefaultExtrasChannel = "extras"

// DefaultCondaChannel is the channel assumed when a conda package names none.
const DefaultCondaChannel = "conda-forge"

// ParseExtraPackages parses the comma-separated value of an EXTRA_* variable.
// A fragment that starts with an operator continues the previous package,
// so "numpy>=1.20,<2, requests" yields two packages.
func ParseExtraPackages(m Manager, value string) ([]PackageSpec, error) {
	var raw []string
	for _, fragment := range splitTopLevel(value) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if strings.ContainsAny(fragment[:1], "<>=!~") {
			if len(raw) == 0 {
				return nil, zerr.With(ErrDanglingConstraint, "fragment", fragment)
			}
			raw[len(raw)-1] += "," + fragment
			continue
		}
		raw = append(raw, fragment)
	}

	specs := make([]PackageSpec, 0, len(raw))
	for _, r := range raw {
		spec, err := ParsePackageSpec(m, r)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return MergeSpecs(specs)
}

// splitTopLevel splits on commas that are not inside pip extras brackets.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// ExtrasFromEnv reads both EXTRA_* variables through lookup.
// Conda packages come first in the result.
func ExtrasFromEnv(lookup func(string) (string, bool)) ([]PackageSpec, error) {
	var out []PackageSpec
	for _, v := range []struct {
		name    string
		manager Manager
	}{
		{EnvExtraConda, ManagerConda},
		{EnvExtraPip, ManagerPip},
	} {
		value, ok := lookup(v.name)
		if !ok {
			continue
		}
		specs, err := ParseExtraPackages(v.manager, value)
		if err != nil {
			return nil, zerr.With(err, "variable", v.name)
		}
		out = append(out, specs...)
	}
	return out, nil
}

// FormatExtraPackages renders pinned packages of one manager as an EXTRA_* value.
// Pip extras keep their brackets, so "pkg[a,b]==1" holds a comma inside one
// item; readers must split outside brackets the way ParseExtraPackages does.
func FormatExtraPackages(m Manager, packages []ResolvedPackage) string {
	parts := make([]string, 0, len(packages))
	for _, p := range packages {
		if p.Manager != m {
			continue
		}
		parts = append(parts, p.Pin())
	}
	return strings.Join(parts, ",")
}
