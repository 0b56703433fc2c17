package mount

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SnapshotSource = (*Source)(nil)

// Source reads snapshots from a mount root. Channel pointers are cached
// until Watch observes a change under channels/.
type Source struct {
	layout Layout

	mu       sync.RWMutex
	channels map[string]domain.Channel
	// gen counts invalidations so a read racing one is not cached.
	gen uint64

	afterRead func()
}

// NewSource creates a source for the mount root.
func NewSource(root string) *Source {
	return &Source{
		layout:   Layout{Root: filepath.Clean(root)},
		channels: make(map[string]domain.Channel),
	}
}

// Snapshot reads and verifies a snapshot.
func (s *Source) Snapshot(_ context.Context, d digest.Digest) (*domain.Snapshot, error) {
	if err := d.Validate(); err != nil {
		return nil, zerr.With(domain.ErrInvalidSnapshotRef, "ref", d.String())
	}

	//nolint:gosec // Path is built by Layout from a validated digest
	data, err := os.ReadFile(s.layout.SnapshotPath(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	return domain.DecodeSnapshot(data, d)
}

// Channel resolves a channel reference through the exported pointer files.
func (s *Source) Channel(_ context.Context, ref domain.SnapshotRef) (domain.Channel, error) {
	if ref.IsDigest() {
		return domain.Channel{}, zerr.With(domain.ErrInvalidSnapshotRef, "ref", ref.String())
	}
	if err := domain.ValidateChannelName(ref.Name); err != nil {
		return domain.Channel{}, err
	}

	key := ref.String()
	s.mu.RLock()
	ch, ok := s.channels[key]
	gen := s.gen
	s.mu.RUnlock()
	if ok {
		return ch, nil
	}

	ch, err := readChannel(s.layout.ChannelPath(ref.Name, ref.Version))
	if err != nil {
		return domain.Channel{}, err
	}
	if s.afterRead != nil {
		s.afterRead()
	}

	s.mu.Lock()
	if s.gen == gen {
		s.channels[key] = ch
	}
	s.mu.Unlock()
	return ch, nil
}

// Channels lists the latest pointer of every exported channel, sorted by name.
func (s *Source) Channels(ctx context.Context) ([]domain.Channel, error) {
	entries, err := os.ReadDir(s.layout.ChannelsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	suffix := "@" + latestTag + ".json"
	var names []string
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), suffix); ok && !entry.IsDir() {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	channels := make([]domain.Channel, 0, len(names))
	for _, name := range names {
		ch, err := s.Channel(ctx, domain.SnapshotRef{Name: name})
		if err != nil {
			return nil, zerr.With(err, "channel", name)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// Invalidate drops every cached channel pointer.
func (s *Source) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	clear(s.channels)
}

// Watch invalidates the channel cache whenever channels/ changes. It returns
// once the watcher is running; the watcher stops when ctx is done.
func (s *Source) Watch(ctx context.Context, logger ports.Logger) error {
	dir := s.layout.ChannelsDir()
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return zerr.Wrap(err, "failed to start channel watcher")
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return zerr.With(zerr.Wrap(err, "failed to watch channels"), "path", dir)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("channel watcher: " + err.Error())
				}
			}
		}
	}()
	return nil
}
