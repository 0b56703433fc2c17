package domain

// Release is one candidate version returned by a package index.
type Release struct {
	Version  string `json:"version"`
	Build    string `json:"build,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Platform string `json:"platform,omitempty"`
	URL      string `json:"url,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Yanked   bool   `json:"yanked,omitempty"`
}

// ResolvedPackage is a package pinned to one release.
type ResolvedPackage struct {
	Manager Manager  `json:"manager"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Extras  []string `json:"extras,omitempty"`
	Build   string   `json:"build,omitempty"`
	Channel string   `json:"channel,omitempty"`
	URL     string   `json:"url,omitempty"`
	SHA256  string   `json:"sha256,omitempty"`
}

// Key identifies the package independent of its version.
func (p ResolvedPackage) Key() string {
	return string(p.Manager) + "/" + p.Name
}

// Pin renders the package as an exact specifier for its manager.
func (p ResolvedPackage) Pin() string {
	spec := PackageSpec{
		Manager:    p.Manager,
		Name:       p.Name,
		Extras:     p.Extras,
		Constraint: Constraint{{Op: OpEqual, Version: p.Version}},
	}
	if p.Manager == ManagerConda && p.Channel != "" && p.Channel != DefaultCondaChannel {
		spec.Channel = p.Channel
	}
	return spec.String()
}
