package domain

import (
	"path/filepath"
	"time"
)

const (
	// LumenvDirName is the name of the internal state directory.
	LumenvDirName = ".lumenv"

	// StoreDirName is the name of the content addressable snapshot store directory.
	StoreDirName = "store"

	// ChannelsDirName is the name of the channel index directory.
	ChannelsDirName = "channels"

	// DeploymentsDirName is the name of the deployment record directory.
	DeploymentsDirName = "deployments"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// IndexDirName is the name of the package index cache directory.
	IndexDirName = "index"

	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "lumenv.yaml"

	// JSONCConfigFileName is the name of the JSON-with-comments configuration file.
	JSONCConfigFileName = "lumenv.jsonc"

	// DefaultAddr is the default listen address of the distribution server.
	DefaultAddr = "127.0.0.1:7345"

	// IndexCacheTTL is how long a cached index response stays fresh.
	IndexCacheTTL = 24 * time.Hour

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultStorePath returns the default path for the snapshot store.
func DefaultStorePath() string {
	return filepath.Join(LumenvDirName, StoreDirName)
}

// DefaultChannelsPath returns the default path for the channel index.
func DefaultChannelsPath() string {
	return filepath.Join(LumenvDirName, ChannelsDirName)
}

// DefaultDeploymentsPath returns the default path for deployment records.
func DefaultDeploymentsPath() string {
	return filepath.Join(LumenvDirName, DeploymentsDirName)
}

// DefaultIndexCachePath returns the default path for the package index cache.
// It joins .lumenv, cache, and index.
func DefaultIndexCachePath() string {
	return filepath.Join(LumenvDirName, CacheDirName, IndexDirName)
}
