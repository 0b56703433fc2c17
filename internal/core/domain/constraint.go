package domain

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Op is a version comparison operator.
type Op string

const (
	// OpEqual matches an exact version, or a release prefix when the version ends in ".*".
	OpEqual Op = "=="
	// OpPrefix is the conda fuzzy match: "=1.2" matches every 1.2.x release.
	OpPrefix Op = "="
	// OpNotEqual excludes an exact version or a release prefix.
	OpNotEqual Op = "!="
	// OpGreaterEqual matches versions at or above the bound.
	OpGreaterEqual Op = ">="
	// OpLessEqual matches versions at or below the bound.
	OpLessEqual Op = "<="
	// OpGreater matches versions above the bound.
	OpGreater Op = ">"
	// OpLess matches versions below the bound.
	OpLess Op = "<"
	// OpCompatible is the compatible release operator "~=".
	OpCompatible Op = "~="
)

const wildcardSuffix = ".*"

// operators is ordered so that two-character operators are tried first.
var operators = []Op{OpCompatible, OpEqual, OpNotEqual, OpGreaterEqual, OpLessEqual, OpGreater, OpLess, OpPrefix}

var versionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_.!+-]+(\.\*)?$`)

// Clause is a single operator and version pair.
type Clause struct {
	Op      Op     `json:"op"`
	Version string `json:"version"`
}

// String renders the clause, e.g. ">=1.20".
func (c Clause) String() string {
	return string(c.Op) + c.Version
}

func (c Clause) wildcard() bool {
	return strings.HasSuffix(c.Version, wildcardSuffix)
}

func (c Clause) base() Version {
	return ParseVersion(strings.TrimSuffix(c.Version, wildcardSuffix))
}

// Matches reports whether v satisfies the clause.
func (c Clause) Matches(v Version) bool {
	b := c.base()
	switch c.Op {
	case OpEqual:
		if c.wildcard() {
			return v.HasPrefix(b)
		}
		return withoutLocal(v, b).Compare(b) == 0
	case OpNotEqual:
		if c.wildcard() {
			return !v.HasPrefix(b)
		}
		return withoutLocal(v, b).Compare(b) != 0
	case OpPrefix:
		return v.HasPrefix(b)
	case OpGreaterEqual:
		return v.Compare(b) >= 0
	case OpLessEqual:
		return v.Compare(b) <= 0
	case OpGreater:
		return v.Compare(b) > 0
	case OpLess:
		return v.Compare(b) < 0
	case OpCompatible:
		return v.Compare(b) >= 0 && v.HasPrefix(compatiblePrefix(b))
	default:
		return false
	}
}

// withoutLocal drops the local label of v when the clause names none, so
// "==1.0" matches "1.0+cpu".
func withoutLocal(v, bound Version) Version {
	if bound.HasLocal() {
		return v
	}
	return v.Public()
}

// compatiblePrefix drops the last release segment: ~=1.4.2 keeps 1.4.
func compatiblePrefix(v Version) Version {
	rel := v.Release()
	parts := make([]string, 0, len(rel)-1)
	for _, seg := range rel[:len(rel)-1] {
		parts = append(parts, itoa(seg))
	}
	return ParseVersion(strings.Join(parts, "."))
}

// Constraint is a conjunction of clauses. An empty constraint matches any release.
type Constraint []Clause

// ParseConstraint parses a comma-separated list of clauses such as ">=1.0,<2".
// A bare version without an operator is a prefix match, as in conda's "numpy 1.2".
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return nil, nil
	}

	var out Constraint
	for _, raw := range strings.Split(s, ",") {
		part := strings.Join(strings.Fields(raw), "")
		if part == "" {
			return nil, zerr.With(ErrInvalidVersion, "constraint", s)
		}
		c, err := parseClause(part)
		if err != nil {
			return nil, zerr.With(err, "constraint", s)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseClause(s string) (Clause, error) {
	op := OpPrefix
	version := s
	for _, candidate := range operators {
		if strings.HasPrefix(s, string(candidate)) {
			op = candidate
			version = s[len(candidate):]
			break
		}
	}

	if version == "*" && op == OpPrefix {
		return Clause{Op: OpGreaterEqual, Version: "0"}, nil
	}
	if !versionTokenPattern.MatchString(version) {
		return Clause{}, zerr.With(ErrInvalidVersion, "version", version)
	}

	switch op {
	case OpEqual, OpNotEqual, OpPrefix:
	default:
		// Ordering operators ignore a trailing wildcard.
		version = strings.TrimSuffix(version, wildcardSuffix)
	}
	if op == OpCompatible && len(ParseVersion(version).Release()) < 2 {
		return Clause{}, zerr.With(ErrInvalidVersion, "version", version)
	}
	return Clause{Op: op, Version: version}, nil
}

// String renders the constraint as a comma-separated clause list.
func (c Constraint) String() string {
	parts := make([]string, len(c))
	for i, clause := range c {
		parts[i] = clause.String()
	}
	return strings.Join(parts, ",")
}

// Matches reports whether v satisfies every clause.
func (c Constraint) Matches(v Version) bool {
	for _, clause := range c {
		if !clause.Matches(v) {
			return false
		}
	}
	return true
}

// AllowsPrerelease reports whether any clause names a pre-release version.
func (c Constraint) AllowsPrerelease() bool {
	for _, clause := range c {
		if clause.base().IsPrerelease() {
			return true
		}
	}
	return false
}

// Intersect returns the conjunction of both constraints without duplicate clauses.
func (c Constraint) Intersect(o Constraint) Constraint {
	out := make(Constraint, 0, len(c)+len(o))
	seen := make(map[Clause]struct{}, len(c)+len(o))
	for _, clause := range append(append(Constraint{}, c...), o...) {
		if _, ok := seen[clause]; ok {
			continue
		}
		seen[clause] = struct{}{}
		out = append(out, clause)
	}
	return out
}

// Canonical returns the clauses in a fixed order, by operator and then by
// version, so equal constraints render identically.
func (c Constraint) Canonical() Constraint {
	if len(c) == 0 {
		return c
	}
	out := slices.Clone(c)
	slices.SortFunc(out, func(a, b Clause) int {
		return cmp.Or(
			strings.Compare(string(a.Op), string(b.Op)),
			a.base().Compare(b.base()),
			strings.Compare(a.Version, b.Version),
		)
	})
	return out
}

// Pinned returns the exact version when the constraint is a single "==" clause.
func (c Constraint) Pinned() (string, bool) {
	if len(c) == 1 && c[0].Op == OpEqual && !c[0].wildcard() {
		return c[0].Version, true
	}
	return "", false
}

// Satisfiable reports whether some version could satisfy every clause.
// It detects conflicting pins, crossed bounds and disjoint prefixes.
func (c Constraint) Satisfiable() bool {
	var pins []Version
	for _, clause := range c {
		if clause.Op == OpEqual && !clause.wildcard() {
			pins = append(pins, clause.base())
		}
	}
	if len(pins) > 0 {
		return c.Matches(pins[0])
	}

	var lower, upper *Version
	lowerStrict, upperStrict := false, false
	var prefixes []Version

	raise := func(v Version, strict bool) {
		if lower == nil || v.Compare(*lower) > 0 || (v.Compare(*lower) == 0 && strict) {
			lower, lowerStrict = &v, strict
		}
	}
	lowerTo := func(v Version, strict bool) {
		if upper == nil || v.Compare(*upper) < 0 || (v.Compare(*upper) == 0 && strict) {
			upper, upperStrict = &v, strict
		}
	}

	for _, clause := range c {
		b := clause.base()
		switch clause.Op {
		case OpGreaterEqual:
			raise(b, false)
		case OpGreater:
			raise(b, true)
		case OpLessEqual:
			lowerTo(b, false)
		case OpLess:
			lowerTo(b, true)
		case OpCompatible:
			raise(b, false)
			prefixes = append(prefixes, compatiblePrefix(b))
		case OpPrefix, OpEqual:
			raise(b, false)
			prefixes = append(prefixes, b)
		}
	}

	for i := range prefixes {
		for j := i + 1; j < len(prefixes); j++ {
			if !prefixes[i].HasPrefix(prefixes[j]) && !prefixes[j].HasPrefix(prefixes[i]) {
				return false
			}
		}
	}

	if lower == nil || upper == nil {
		return true
	}
	switch cmp := lower.Compare(*upper); {
	case cmp > 0:
		return false
	case cmp == 0:
		return !lowerStrict && !upperStrict
	default:
		return true
	}
}
