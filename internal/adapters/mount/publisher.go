package mount

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/render"
	"go.trai.ch/zerr"
)

// Publisher writes snapshots into a mount root.
type Publisher struct {
	layout Layout
}

// NewPublisher creates a publisher for the mount root.
func NewPublisher(root string) *Publisher {
	return &Publisher{layout: Layout{Root: filepath.Clean(root)}}
}

// Layout returns the paths the publisher writes to.
func (p *Publisher) Layout() Layout {
	return p.layout
}

// Export writes the snapshot, its channel pointers and rendered install files.
// The latest pointer only moves forward. It returns the written paths.
func (p *Publisher) Export(ch domain.Channel, snapshot *domain.Snapshot, condaChannels []string) ([]string, error) {
	if err := domain.ValidateChannelName(ch.Name); err != nil {
		return nil, err
	}
	if ch.Version < 1 {
		return nil, zerr.With(domain.ErrInvalidSnapshotRef, "ref", ch.Ref().String())
	}

	data, err := snapshot.Canonical()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	d, err := snapshot.Digest()
	if err != nil {
		return nil, err
	}
	if ch.Digest != "" && ch.Digest != d {
		return nil, zerr.With(domain.ErrDigestMismatch, "digest", ch.Digest.String())
	}
	ch.Digest = d

	pointer, err := json.MarshalIndent(ch, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	requirements, err := render.Requirements(snapshot)
	if err != nil {
		return nil, err
	}
	explicit, err := render.CondaExplicit(snapshot)
	if err != nil {
		return nil, err
	}
	environment, err := render.CondaEnvironment(snapshot, condaChannels)
	if err != nil {
		return nil, err
	}

	files := []struct {
		path string
		data []byte
	}{
		{p.layout.SnapshotPath(d), data},
		{p.layout.RequirementsPath(ch.Name, ch.Version), requirements},
		{p.layout.CondaExplicitPath(ch.Name, ch.Version), explicit},
		{p.layout.EnvironmentPath(ch.Name, ch.Version), environment},
		{p.layout.ChannelPath(ch.Name, ch.Version), pointer},
	}

	advance, err := p.isNewest(ch)
	if err != nil {
		return nil, err
	}
	if advance {
		files = append(files, struct {
			path string
			data []byte
		}{p.layout.ChannelPath(ch.Name, domain.LatestVersion), pointer})
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := atomicWriteFile(f.path, f.data); err != nil {
			return written, zerr.With(err, "path", f.path)
		}
		written = append(written, f.path)
	}
	return written, nil
}

// isNewest reports whether ch is at least as new as the exported latest pointer.
func (p *Publisher) isNewest(ch domain.Channel) (bool, error) {
	current, err := readChannel(p.layout.ChannelPath(ch.Name, domain.LatestVersion))
	if errors.Is(err, domain.ErrChannelNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return ch.Version >= current.Version, nil
}

func readChannel(path string) (domain.Channel, error) {
	//nolint:gosec // Path is built by Layout from a validated channel name
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Channel{}, domain.ErrChannelNotFound
		}
		return domain.Channel{}, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var ch domain.Channel
	if err := json.Unmarshal(data, &ch); err != nil {
		return domain.Channel{}, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "path", path)
	}
	return ch, nil
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
// Jobs may read the mount while an export runs.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	tmpFile, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	tmpName := tmpFile.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmpFile.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}
