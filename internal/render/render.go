// Package render turns snapshots into the install files package managers read.
package render

import (
	"bytes"
	"slices"
	"strings"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

func header(s *domain.Snapshot) (string, error) {
	d, err := s.Digest()
	if err != nil {
		return "", err
	}
	return "# channel " + s.Channel + " (" + s.Platform + ") " + d.String() + "\n", nil
}

// Requirements renders the pip packages as a hash-pinned requirements file.
func Requirements(s *domain.Snapshot) ([]byte, error) {
	head, err := header(s)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(head)
	for _, p := range s.ByManager(domain.ManagerPip) {
		b.WriteString(p.Pin())
		if p.SHA256 != "" {
			b.WriteString(" \\\n    --hash=sha256:")
			b.WriteString(p.SHA256)
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// CondaExplicit renders the conda packages as an explicit spec file.
// Packages without a download URL cannot be listed and are noted as comments.
func CondaExplicit(s *domain.Snapshot) ([]byte, error) {
	head, err := header(s)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString("@EXPLICIT\n")
	for _, p := range s.ByManager(domain.ManagerConda) {
		if p.URL == "" {
			b.WriteString("# missing url: " + p.Pin() + "\n")
			continue
		}
		b.WriteString(p.URL)
		if p.SHA256 != "" {
			b.WriteString("#" + p.SHA256)
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

type environmentFile struct {
	Name         string   `yaml:"name"`
	Channels     []string `yaml:"channels"`
	Dependencies []any    `yaml:"dependencies"`
}

type pipSection struct {
	Pip []string `yaml:"pip"`
}

// CondaEnvironment renders the snapshot as a conda environment.yml. Channels
// pinned on packages are added after the given search list.
func CondaEnvironment(s *domain.Snapshot, channels []string) ([]byte, error) {
	env := environmentFile{
		Name:         s.Channel,
		Channels:     append([]string(nil), channels...),
		Dependencies: []any{},
	}
	if len(env.Channels) == 0 {
		env.Channels = []string{domain.DefaultCondaChannel}
	}

	for _, p := range s.ByManager(domain.ManagerConda) {
		if p.Channel != "" && !slices.Contains(env.Channels, p.Channel) {
			env.Channels = append(env.Channels, p.Channel)
		}
		dep := p.Name + "=" + p.Version
		if p.Build != "" {
			dep += "=" + p.Build
		}
		env.Dependencies = append(env.Dependencies, dep)
	}

	if pip := s.ByManager(domain.ManagerPip); len(pip) > 0 {
		section := pipSection{Pip: make([]string, 0, len(pip))}
		for _, p := range pip {
			section.Pip = append(section.Pip, p.Pin())
		}
		env.Dependencies = append(env.Dependencies, "pip", section)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(env); err != nil {
		return nil, zerr.Wrap(err, "failed to encode environment file")
	}
	if err := enc.Close(); err != nil {
		return nil, zerr.Wrap(err, "failed to encode environment file")
	}
	return buf.Bytes(), nil
}
