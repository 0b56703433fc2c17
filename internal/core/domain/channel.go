package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

var channelNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateChannelName checks that a channel name is safe to use as a file name.
func ValidateChannelName(name string) error {
	if !channelNamePattern.MatchString(name) {
		return zerr.With(ErrInvalidChannelName, "channel", name)
	}
	return nil
}

// Channel is one version of a named pointer to a snapshot.
type Channel struct {
	Name      string        `json:"name"`
	Version   int           `json:"version"`
	Digest    digest.Digest `json:"digest"`
	CreatedAt time.Time     `json:"created_at"`
}

// Ref returns the exact reference of this channel version.
func (c Channel) Ref() SnapshotRef {
	return SnapshotRef{Name: c.Name, Version: c.Version}
}

// LatestVersion is the SnapshotRef version that selects the newest channel version.
const LatestVersion = 0

// SnapshotRef points at a snapshot either through a channel or by digest.
type SnapshotRef struct {
	Name    string
	Version int
	Digest  digest.Digest
}

// ParseSnapshotRef parses "name", "name@latest", "name@<version>" or "sha256:<hex>".
func ParseSnapshotRef(s string) (SnapshotRef, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		d, err := digest.Parse(s)
		if err != nil {
			return SnapshotRef{}, zerr.With(ErrInvalidSnapshotRef, "ref", s)
		}
		return SnapshotRef{Digest: d}, nil
	}

	name, version, hasVersion := strings.Cut(s, "@")
	if err := ValidateChannelName(name); err != nil {
		return SnapshotRef{}, zerr.With(ErrInvalidSnapshotRef, "ref", s)
	}
	ref := SnapshotRef{Name: name, Version: LatestVersion}
	if !hasVersion || version == "latest" {
		return ref, nil
	}

	n, err := strconv.Atoi(version)
	if err != nil || n < 1 {
		return SnapshotRef{}, zerr.With(ErrInvalidSnapshotRef, "ref", s)
	}
	ref.Version = n
	return ref, nil
}

// IsDigest reports whether the reference addresses a snapshot directly.
func (r SnapshotRef) IsDigest() bool {
	return r.Digest != ""
}

// IsLatest reports whether the reference follows the newest channel version.
func (r SnapshotRef) IsLatest() bool {
	return !r.IsDigest() && r.Version == LatestVersion
}

// String renders the reference in the form ParseSnapshotRef accepts.
func (r SnapshotRef) String() string {
	switch {
	case r.IsDigest():
		return r.Digest.String()
	case r.IsLatest():
		return r.Name + "@latest"
	default:
		return r.Name + "@" + strconv.Itoa(r.Version)
	}
}
