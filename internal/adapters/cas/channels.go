package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// channelFile is the on-disk history of one channel.
type channelFile struct {
	Name     string           `json:"name"`
	Versions []domain.Channel `json:"versions"`
}

// ChannelIndex implements ports.ChannelIndex with one JSON file per channel.
type ChannelIndex struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

var _ ports.ChannelIndex = (*ChannelIndex)(nil)

// NewChannelIndex creates a channel index rooted at dir.
func NewChannelIndex(dir string) *ChannelIndex {
	return &ChannelIndex{
		dir: filepath.Clean(dir),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (c *ChannelIndex) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

func (c *ChannelIndex) read(name string) (*channelFile, error) {
	if err := domain.ValidateChannelName(name); err != nil {
		return nil, err
	}

	//nolint:gosec // Path is constructed from the index directory and a validated name
	data, err := os.ReadFile(c.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &channelFile{Name: name}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "channel", name)
	}

	var file channelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "channel", name)
	}
	return &file, nil
}

// Publish points name at d. The returned bool reports whether a new version was created.
func (c *ChannelIndex) Publish(name string, d digest.Digest) (domain.Channel, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := c.read(name)
	if err != nil {
		return domain.Channel{}, false, err
	}
	if n := len(file.Versions); n > 0 && file.Versions[n-1].Digest == d {
		return file.Versions[n-1], false, nil
	}

	ch := domain.Channel{
		Name:      name,
		Version:   len(file.Versions) + 1,
		Digest:    d,
		CreatedAt: c.now(),
	}
	file.Versions = append(file.Versions, ch)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return domain.Channel{}, false, zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := atomicWriteFile(c.path(name), data); err != nil {
		return domain.Channel{}, false, zerr.With(err, "channel", name)
	}
	return ch, true, nil
}

// Get returns one version of the channel. LatestVersion selects the newest.
func (c *ChannelIndex) Get(name string, version int) (domain.Channel, error) {
	history, err := c.History(name)
	if err != nil {
		return domain.Channel{}, err
	}
	if version == domain.LatestVersion {
		return history[len(history)-1], nil
	}
	if version < 1 || version > len(history) {
		return domain.Channel{}, domain.ErrChannelNotFound
	}
	return history[version-1], nil
}

// Latest returns the newest version of the channel.
func (c *ChannelIndex) Latest(name string) (domain.Channel, error) {
	return c.Get(name, domain.LatestVersion)
}

// History returns every version of the channel, oldest first.
func (c *ChannelIndex) History(name string) ([]domain.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := c.read(name)
	if err != nil {
		return nil, err
	}
	if len(file.Versions) == 0 {
		return nil, domain.ErrChannelNotFound
	}
	return file.Versions, nil
}

// List returns the newest version of each channel, sorted by name.
func (c *ChannelIndex) List() ([]domain.Channel, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var channels []domain.Channel
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok || entry.IsDir() || domain.ValidateChannelName(name) != nil {
			continue
		}
		latest, err := c.Latest(name)
		if errors.Is(err, domain.ErrChannelNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		channels = append(channels, latest)
	}
	return channels, nil
}
