package cas

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// SnapshotStore implements ports.SnapshotStore with one file per digest.
type SnapshotStore struct {
	dir string
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: filepath.Clean(dir)}
}

func (s *SnapshotStore) path(d digest.Digest) string {
	return filepath.Join(s.dir, string(d.Algorithm()), d.Encoded()+".json")
}

// Put writes the canonical encoding of snapshot under its digest.
func (s *SnapshotStore) Put(snapshot *domain.Snapshot) (digest.Digest, error) {
	data, err := snapshot.Canonical()
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	d := digest.FromBytes(data)

	path := s.path(d)
	if _, err := os.Stat(path); err == nil {
		return d, nil
	}
	if err := atomicWriteFile(path, data); err != nil {
		return "", zerr.With(err, "digest", d.String())
	}
	return d, nil
}

// Get reads and verifies the snapshot with digest d.
func (s *SnapshotStore) Get(d digest.Digest) (*domain.Snapshot, error) {
	if err := d.Validate(); err != nil {
		return nil, zerr.With(domain.ErrInvalidSnapshotRef, "ref", d.String())
	}

	//nolint:gosec // Path is constructed from the store directory and a validated digest
	data, err := os.ReadFile(s.path(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "digest", d.String())
	}
	return domain.DecodeSnapshot(data, d)
}

// List returns every stored digest in sorted order.
func (s *SnapshotStore) List() ([]digest.Digest, error) {
	dir := filepath.Join(s.dir, string(digest.SHA256))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	digests := make([]digest.Digest, 0, len(entries))
	for _, entry := range entries {
		encoded, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok || entry.IsDir() {
			continue
		}
		d := digest.NewDigestFromEncoded(digest.SHA256, encoded)
		if d.Validate() != nil {
			continue
		}
		digests = append(digests, d)
	}
	slices.Sort(digests)
	return digests, nil
}
