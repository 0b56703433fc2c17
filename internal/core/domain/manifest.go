package domain

import (
	"maps"
	"slices"
)

// ChannelDef declares the packages of one channel.
type ChannelDef struct {
	Name          string
	Packages      []PackageSpec
	CondaChannels []string
	// Extras appends the EXTRA_* packages of the current process.
	Extras bool
}

// Manifest is the validated project configuration.
type Manifest struct {
	Root          string
	Platform      string
	CondaChannels []string
	Image         string
	Runner        []string
	Channels      map[string]ChannelDef
}

// ChannelNames returns the declared channel names in sorted order.
func (m *Manifest) ChannelNames() []string {
	return slices.Sorted(maps.Keys(m.Channels))
}

// CondaChannelsFor returns the conda channels searched for a channel,
// falling back to the manifest default.
func (m *Manifest) CondaChannelsFor(def ChannelDef) []string {
	if len(def.CondaChannels) > 0 {
		return def.CondaChannels
	}
	if len(m.CondaChannels) > 0 {
		return m.CondaChannels
	}
	return []string{DefaultCondaChannel}
}

// PlatformFor maps a Go OS and architecture to a conda subdir.
func PlatformFor(goos, goarch string) string {
	subdir := goos
	switch goos {
	case "darwin":
		subdir = "osx"
	case "windows":
		subdir = "win"
	}

	switch goarch {
	case "amd64":
		return subdir + "-64"
	case "386":
		return subdir + "-32"
	case "arm64":
		if goos == "linux" {
			return subdir + "-aarch64"
		}
		return subdir + "-arm64"
	default:
		return subdir + "-" + goarch
	}
}
