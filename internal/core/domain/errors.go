package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidPackageSpec is returned when a package specifier cannot be parsed.
	ErrInvalidPackageSpec = zerr.New("invalid package specifier")

	// ErrDanglingConstraint is returned when an extras list starts with a bare version clause.
	ErrDanglingConstraint = zerr.New("version clause without a preceding package")

	// ErrUnknownManager is returned when a package manager other than conda or pip is requested.
	ErrUnknownManager = zerr.New("unknown package manager, expected 'conda' or 'pip'")

	// ErrInvalidVersion is returned when a version string in a constraint cannot be parsed.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrUnsatisfiable is returned when merged constraints for one package contradict each other.
	ErrUnsatisfiable = zerr.New("constraints cannot be satisfied together")

	// ErrNoMatchingRelease is returned when no release of a package satisfies its constraint.
	ErrNoMatchingRelease = zerr.New("no release matches the constraint")

	// ErrPackageNotFound is returned when a package index does not know the package.
	ErrPackageNotFound = zerr.New("package not found in index")

	// ErrIndexRequestFailed is returned when a request to a package index fails.
	ErrIndexRequestFailed = zerr.New("package index request failed")

	// ErrIndexParseFailed is returned when a package index response cannot be parsed.
	ErrIndexParseFailed = zerr.New("failed to parse package index response")

	// ErrIndexCacheCreateFailed is returned when the index cache directory cannot be created.
	ErrIndexCacheCreateFailed = zerr.New("failed to create index cache directory")

	// ErrCacheMiss is returned when a requested item is not found in the cache.
	ErrCacheMiss = zerr.New("cache miss")

	// ErrInvalidChannelName is returned when a channel name contains invalid characters.
	ErrInvalidChannelName = zerr.New("channel name can only contain alphanumeric characters, hyphens and underscores")

	// ErrInvalidSnapshotRef is returned when a snapshot reference cannot be parsed.
	ErrInvalidSnapshotRef = zerr.New("invalid snapshot reference, expected name, name@version or sha256:<hex>")

	// ErrChannelNotFound is returned when a channel or channel version does not exist.
	ErrChannelNotFound = zerr.New("channel not found")

	// ErrChannelNotDeclared is returned when a requested channel is missing from the manifest.
	ErrChannelNotDeclared = zerr.New("channel not declared in configuration")

	// ErrSnapshotNotFound is returned when no snapshot exists for a digest.
	ErrSnapshotNotFound = zerr.New("snapshot not found")

	// ErrDigestMismatch is returned when stored snapshot content does not hash to its address.
	ErrDigestMismatch = zerr.New("snapshot content does not match its digest")

	// ErrStoreReadFailed is returned when the store cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read from store")

	// ErrStoreWriteFailed is returned when the store cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write to store")

	// ErrStoreUnmarshalFailed is returned when stored data cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal stored data")

	// ErrDeploymentNotFound is returned when no dependency record exists for a deployment.
	ErrDeploymentNotFound = zerr.New("deployment not found")

	// ErrInvalidDeploymentID is returned when a deployment id cannot be used as a record key.
	ErrInvalidDeploymentID = zerr.New("deployment id can only contain alphanumeric characters, dots, hyphens and underscores")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when the config file cannot be found.
	ErrConfigNotFound = zerr.New("could not find lumenv.yaml or lumenv.jsonc")

	// ErrInvalidModulePath is returned when a flow is referenced by something other than a module path.
	ErrInvalidModulePath = zerr.New("flow must be referenced by module path, e.g. 'pkg.flows.my_flow'")

	// ErrWorkingDirNotFound is returned when a job's working directory does not exist.
	ErrWorkingDirNotFound = zerr.New("working directory does not exist")

	// ErrMissingImage is returned when a container job has no image configured.
	ErrMissingImage = zerr.New("no container image configured")

	// ErrUnknownBackend is returned when a job names a backend that is not registered.
	ErrUnknownBackend = zerr.New("unknown backend, expected 'local' or 'docker'")

	// ErrJobFailed is returned when a job exits unsuccessfully.
	ErrJobFailed = zerr.New("job failed")

	// ErrUnknownFormat is returned when a snapshot is requested in an unsupported format.
	ErrUnknownFormat = zerr.New("unknown format, expected 'json', 'requirements', 'conda' or 'environment'")

	// ErrInvalidEnvAssignment is returned when an env flag is not in KEY=VALUE form.
	ErrInvalidEnvAssignment = zerr.New("invalid environment assignment, expected KEY=VALUE")

	// ErrRemoteUnavailable is returned when the distribution endpoint cannot be reached.
	ErrRemoteUnavailable = zerr.New("distribution endpoint unavailable")
)
