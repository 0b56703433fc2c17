package domain

import (
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Manager identifies the package manager that installs a package.
type Manager string

const (
	// ManagerConda installs packages from conda channels.
	ManagerConda Manager = "conda"
	// ManagerPip installs packages from PyPI.
	ManagerPip Manager = "pip"
)

// ParseManager validates a manager name.
func ParseManager(s string) (Manager, error) {
	switch m := Manager(strings.ToLower(strings.TrimSpace(s))); m {
	case ManagerConda, ManagerPip:
		return m, nil
	default:
		return "", zerr.With(ErrUnknownManager, "manager", s)
	}
}

var (
	pipNamePattern   = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	condaNamePattern = regexp.MustCompile(`^[a-z0-9_][a-z0-9._+-]*$`)
	separatorRun     = regexp.MustCompile(`[-_.]+`)
	spacedOperator   = regexp.MustCompile(`([<>=!~]=?)\s+`)
)

// PackageSpec is a requested package with an optional version constraint.
type PackageSpec struct {
	Manager    Manager    `json:"manager"`
	Name       string     `json:"name"`
	Extras     []string   `json:"extras,omitempty"`
	Channel    string     `json:"channel,omitempty"`
	Build      string     `json:"build,omitempty"`
	Constraint Constraint `json:"constraint,omitempty"`
}

// Key identifies the package independent of its constraint.
func (p PackageSpec) Key() string {
	return string(p.Manager) + "/" + p.Name
}

// String renders the specifier in the syntax of its manager.
func (p PackageSpec) String() string {
	var b strings.Builder
	if p.Channel != "" {
		b.WriteString(p.Channel)
		b.WriteString("::")
	}
	b.WriteString(p.Name)
	if len(p.Extras) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(p.Extras, ","))
		b.WriteString("]")
	}
	if p.Build == "" {
		b.WriteString(p.Constraint.String())
		return b.String()
	}

	// Builds use the space form "name version build".
	b.WriteString(" ")
	if len(p.Constraint) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(p.Constraint.String())
	}
	b.WriteString(" ")
	b.WriteString(p.Build)
	return b.String()
}

// NormalizeName returns the canonical form of a package name.
// Pip names follow PEP 503; conda names are lowercased.
func NormalizeName(m Manager, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if m == ManagerPip {
		return separatorRun.ReplaceAllString(name, "-")
	}
	return name
}

// ParsePackageSpec parses a single specifier for the given manager.
func ParsePackageSpec(m Manager, raw string) (PackageSpec, error) {
	s := spacedOperator.ReplaceAllString(strings.TrimSpace(raw), "$1")
	if s == "" {
		return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "spec", raw)
	}

	var (
		spec PackageSpec
		err  error
	)
	switch m {
	case ManagerConda:
		spec, err = parseCondaSpec(s)
	case ManagerPip:
		spec, err = parsePipSpec(s)
	default:
		return PackageSpec{}, zerr.With(ErrUnknownManager, "manager", string(m))
	}
	if err != nil {
		return PackageSpec{}, zerr.With(err, "spec", raw)
	}
	spec.Manager = m
	return spec, nil
}

func parsePipSpec(s string) (PackageSpec, error) {
	// Environment markers do not apply inside the job image.
	if i := strings.Index(s, ";"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if strings.Contains(s, "@") {
		return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "reason", "direct references are not supported")
	}

	name, rest := splitName(s)
	var extras []string
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "reason", "unterminated extras")
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			if e = NormalizeName(ManagerPip, e); e != "" {
				extras = append(extras, e)
			}
		}
		slices.Sort(extras)
		extras = slices.Compact(extras)
		rest = strings.TrimSpace(rest[end+1:])
	}
	if !pipNamePattern.MatchString(name) {
		return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "name", name)
	}

	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	constraint, err := ParseConstraint(rest)
	if err != nil {
		return PackageSpec{}, err
	}
	for _, c := range constraint {
		if c.Op == OpPrefix {
			return PackageSpec{}, zerr.With(ErrInvalidVersion, "reason", "pip requires an operator such as == or >=")
		}
	}

	return PackageSpec{
		Name:       NormalizeName(ManagerPip, name),
		Extras:     extras,
		Constraint: constraint,
	}, nil
}

func parseCondaSpec(s string) (PackageSpec, error) {
	var spec PackageSpec
	if channel, rest, ok := strings.Cut(s, "::"); ok {
		spec.Channel = strings.TrimSpace(channel)
		s = strings.TrimSpace(rest)
		if spec.Channel == "" {
			return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "reason", "empty channel")
		}
	}

	var versionPart string
	if fields := strings.Fields(s); len(fields) > 1 {
		// Space form: "name version [build]".
		if len(fields) > 3 {
			return PackageSpec{}, ErrInvalidPackageSpec
		}
		spec.Name, versionPart = fields[0], fields[1]
		if len(fields) == 3 {
			spec.Build = fields[2]
		}
	} else {
		spec.Name, versionPart = splitName(s)
		// "=1.2=build" and "==1.2=build" carry a build string after the version.
		if trimmed, ok := strings.CutPrefix(versionPart, "=="); ok {
			versionPart, spec.Build = cutBuild("==", trimmed)
		} else if trimmed, ok := strings.CutPrefix(versionPart, "="); ok {
			versionPart, spec.Build = cutBuild("=", trimmed)
		}
	}

	spec.Name = NormalizeName(ManagerConda, spec.Name)
	if !condaNamePattern.MatchString(spec.Name) {
		return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "name", spec.Name)
	}
	if strings.Contains(versionPart, "|") {
		return PackageSpec{}, zerr.With(ErrInvalidPackageSpec, "reason", "alternative version sets are not supported")
	}

	constraint, err := ParseConstraint(versionPart)
	if err != nil {
		return PackageSpec{}, err
	}
	spec.Constraint = constraint
	return spec, nil
}

func cutBuild(op, s string) (version, build string) {
	if v, b, ok := strings.Cut(s, "="); ok && !strings.ContainsAny(s, "<>!~,") {
		return op + v, b
	}
	return op + s, ""
}

// splitName splits a specifier at the first character that cannot be part of a name.
func splitName(s string) (name, rest string) {
	i := strings.IndexAny(s, "[<>=!~ (")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// MergeSpecs combines specifiers that name the same package by intersecting
// their constraints. The order of first appearance is preserved.
func MergeSpecs(specs []PackageSpec) ([]PackageSpec, error) {
	index := make(map[string]int, len(specs))
	out := make([]PackageSpec, 0, len(specs))

	for _, spec := range specs {
		i, seen := index[spec.Key()]
		if !seen {
			index[spec.Key()] = len(out)
			spec.Extras = slices.Clone(spec.Extras)
			out = append(out, spec)
			continue
		}

		merged := &out[i]
		if err := mergeField(&merged.Channel, spec.Channel, "channel", spec); err != nil {
			return nil, err
		}
		if err := mergeField(&merged.Build, spec.Build, "build", spec); err != nil {
			return nil, err
		}
		merged.Extras = append(merged.Extras, spec.Extras...)
		slices.Sort(merged.Extras)
		merged.Extras = slices.Compact(merged.Extras)
		merged.Constraint = merged.Constraint.Intersect(spec.Constraint)
	}

	for _, spec := range out {
		if !spec.Constraint.Satisfiable() {
			err := zerr.With(ErrUnsatisfiable, "package", spec.Key())
			return nil, zerr.With(err, "constraint", spec.Constraint.String())
		}
	}
	return out, nil
}

func mergeField(dst *string, src, field string, spec PackageSpec) error {
	switch {
	case src == "" || *dst == src:
		return nil
	case *dst == "":
		*dst = src
		return nil
	default:
		err := zerr.With(ErrUnsatisfiable, "package", spec.Key())
		return zerr.With(err, field, *dst+" vs "+src)
	}
}
