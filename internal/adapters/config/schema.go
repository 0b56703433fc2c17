package config

// File represents the structure of lumenv.yaml and lumenv.jsonc.
type File struct {
	Version       string                 `yaml:"version" json:"version"`
	Platform      string                 `yaml:"platform" json:"platform"`
	CondaChannels []string               `yaml:"conda_channels" json:"conda_channels"`
	Image         string                 `yaml:"image" json:"image"`
	Runner        []string               `yaml:"runner" json:"runner"`
	Channels      map[string]*ChannelDTO `yaml:"channels" json:"channels"`
}

// ChannelDTO represents a channel definition in the configuration.
type ChannelDTO struct {
	Conda         []string `yaml:"conda" json:"conda"`
	Pip           []string `yaml:"pip" json:"pip"`
	CondaChannels []string `yaml:"conda_channels" json:"conda_channels"`
	Extras        bool     `yaml:"extras" json:"extras"`
}
