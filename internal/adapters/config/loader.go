// Package config loads lumenv.yaml or lumenv.jsonc into a domain.Manifest.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tidwall/jsonc"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultRunner is the command prefix used to start a flow module.
var DefaultRunner = []string{"python", "-m"}

// Loader is responsible for loading and parsing the configuration.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds the nearest configuration file above cwd and returns the manifest.
func (l *Loader) Load(cwd string) (*domain.Manifest, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var file File
	if err := readAndUnmarshal(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	m, err := l.build(&file, filepath.Dir(configPath))
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return m, nil
}

// findConfiguration walks up from cwd. lumenv.yaml wins over lumenv.jsonc
// when both exist in the same directory.
func findConfiguration(cwd string) (string, error) {
	cur := cwd
	for {
		for _, name := range []string{domain.ConfigFileName, domain.JSONCConfigFileName} {
			candidate := filepath.Join(cur, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			// Returned bare so callers can fall back to defaults with errors.Is.
			return "", domain.ErrConfigNotFound
		}
		cur = parent
	}
}

func (l *Loader) build(file *File, root string) (*domain.Manifest, error) {
	m := &domain.Manifest{
		Root:          root,
		Platform:      file.Platform,
		CondaChannels: file.CondaChannels,
		Image:         file.Image,
		Runner:        file.Runner,
		Channels:      make(map[string]domain.ChannelDef, len(file.Channels)),
	}
	if m.Platform == "" {
		m.Platform = domain.PlatformFor(runtime.GOOS, runtime.GOARCH)
	}
	if len(m.CondaChannels) == 0 {
		m.CondaChannels = []string{domain.DefaultCondaChannel}
	}
	if len(m.Runner) == 0 {
		m.Runner = DefaultRunner
	}

	for name, dto := range file.Channels {
		if err := domain.ValidateChannelName(name); err != nil {
			return nil, zerr.With(err, "channel", name)
		}
		if dto == nil {
			dto = &ChannelDTO{}
		}

		def, err := buildChannel(name, dto)
		if err != nil {
			return nil, zerr.With(err, "channel", name)
		}
		if len(def.Packages) == 0 && !def.Extras {
			l.Logger.Warn("channel " + name + " declares no packages")
		}
		m.Channels[name] = def
	}

	return m, nil
}

func buildChannel(name string, dto *ChannelDTO) (domain.ChannelDef, error) {
	specs := make([]domain.PackageSpec, 0, len(dto.Conda)+len(dto.Pip))
	for _, group := range []struct {
		manager domain.Manager
		raw     []string
	}{
		{domain.ManagerConda, dto.Conda},
		{domain.ManagerPip, dto.Pip},
	} {
		for _, raw := range group.raw {
			spec, err := domain.ParsePackageSpec(group.manager, raw)
			if err != nil {
				return domain.ChannelDef{}, err
			}
			specs = append(specs, spec)
		}
	}

	merged, err := domain.MergeSpecs(specs)
	if err != nil {
		return domain.ChannelDef{}, err
	}

	return domain.ChannelDef{
		Name:          name,
		Packages:      merged,
		CondaChannels: dto.CondaChannels,
		Extras:        dto.Extras,
	}, nil
}

// readAndUnmarshal reads a YAML or JSONC file and unmarshals it into the target struct.
func readAndUnmarshal[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by findConfiguration
	data, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	var parseErr error
	if filepath.Base(configPath) == domain.JSONCConfigFileName {
		parseErr = json.Unmarshal(jsonc.ToJSON(data), target)
	} else {
		parseErr = yaml.Unmarshal(data, target)
	}
	if parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}
	return nil
}
