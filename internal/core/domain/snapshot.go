package domain

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

// SnapshotFormatVersion is the current snapshot encoding version.
const SnapshotFormatVersion = 1

// Snapshot is a reproducible, content-addressed set of pinned packages.
type Snapshot struct {
	FormatVersion int               `json:"format_version"`
	Channel       string            `json:"channel"`
	Platform      string            `json:"platform"`
	Requested     []string          `json:"requested"`
	Packages      []ResolvedPackage `json:"packages"`
}

// NewSnapshot builds a snapshot in canonical order.
func NewSnapshot(channel, platform string, requested []PackageSpec, packages []ResolvedPackage) *Snapshot {
	reqs := make([]string, len(requested))
	for i, spec := range requested {
		reqs[i] = requestKey(spec)
	}
	s := &Snapshot{
		FormatVersion: SnapshotFormatVersion,
		Channel:       channel,
		Platform:      platform,
		Requested:     reqs,
		Packages:      slices.Clone(packages),
	}
	s.normalize()
	return s
}

func (s *Snapshot) normalize() {
	if s.Requested == nil {
		s.Requested = []string{}
	}
	if s.Packages == nil {
		s.Packages = []ResolvedPackage{}
	}
	slices.Sort(s.Requested)
	s.Requested = slices.Compact(s.Requested)
	slices.SortFunc(s.Packages, func(a, b ResolvedPackage) int {
		return cmp.Or(
			strings.Compare(string(a.Manager), string(b.Manager)),
			strings.Compare(a.Name, b.Name),
		)
	})
}

// Canonical returns the canonical JSON encoding the digest is computed over.
func (s *Snapshot) Canonical() ([]byte, error) {
	c := *s
	c.Requested = slices.Clone(s.Requested)
	c.Packages = slices.Clone(s.Packages)
	c.normalize()
	return json.Marshal(&c)
}

// Digest returns the content address of the snapshot.
func (s *Snapshot) Digest() (digest.Digest, error) {
	data, err := s.Canonical()
	if err != nil {
		return "", zerr.Wrap(err, "failed to encode snapshot")
	}
	return digest.FromBytes(data), nil
}

// Package returns the pinned package with the given manager and name.
func (s *Snapshot) Package(m Manager, name string) (ResolvedPackage, bool) {
	name = NormalizeName(m, name)
	for _, p := range s.Packages {
		if p.Manager == m && p.Name == name {
			return p, true
		}
	}
	return ResolvedPackage{}, false
}

// ByManager returns the packages installed by one manager.
func (s *Snapshot) ByManager(m Manager) []ResolvedPackage {
	var out []ResolvedPackage
	for _, p := range s.Packages {
		if p.Manager == m {
			out = append(out, p)
		}
	}
	return out
}

// DecodeSnapshot parses snapshot bytes and verifies them against want.
func DecodeSnapshot(data []byte, want digest.Digest) (*Snapshot, error) {
	if err := want.Validate(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrInvalidSnapshotRef.Error()), "digest", want.String())
	}
	verifier := want.Verifier()
	_, _ = verifier.Write(data)
	if !verifier.Verified() {
		return nil, zerr.With(ErrDigestMismatch, "digest", want.String())
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrStoreUnmarshalFailed.Error()), "digest", want.String())
	}
	return &s, nil
}

// requestKey renders a specifier with its clauses in canonical order.
func requestKey(spec PackageSpec) string {
	spec.Constraint = spec.Constraint.Canonical()
	return string(spec.Manager) + ":" + spec.String()
}

// GenerateRequestID returns a deterministic identifier for a resolution request.
// Specifier order does not affect the result.
func GenerateRequestID(channel, platform string, specs []PackageSpec, condaChannels []string) string {
	keys := make([]string, len(specs))
	for i, spec := range specs {
		keys[i] = requestKey(spec)
	}
	slices.Sort(keys)

	var builder strings.Builder
	builder.WriteString(channel)
	builder.WriteString(";")
	builder.WriteString(platform)
	builder.WriteString(";")
	builder.WriteString(strings.Join(condaChannels, ","))
	builder.WriteString(";")
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(";")
	}
	return digest.FromString(builder.String()).Encoded()
}
