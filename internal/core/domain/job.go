package domain

import (
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

// Backend names.
const (
	BackendLocal  = "local"
	BackendDocker = "docker"
)

var (
	modulePathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	envKeyPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateModulePath checks that a flow is referenced by an importable module
// path such as "pkg.flows.my_flow" and not by a file path.
func ValidateModulePath(module string) error {
	if strings.ContainsAny(module, `/\`) || strings.HasSuffix(module, ".py") || !modulePathPattern.MatchString(module) {
		return zerr.With(ErrInvalidModulePath, "module", module)
	}
	return nil
}

// JobSpec describes a job submitted for execution.
type JobSpec struct {
	FlowModule string
	Channel    SnapshotRef
	Env        map[string]string
	WorkingDir string
	Image      string
	Backend    string
	// Runner is the command prefix the module path is appended to.
	Runner []string
	// MountDir is a snapshot export on the host made visible to the job.
	MountDir string
}

// ContainerMountPath is where a snapshot export is mounted inside a container.
const ContainerMountPath = "/opt/lumenv"

// Mount binds a host path into a job.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunConfig is everything a backend needs to launch a job.
type RunConfig struct {
	Env        map[string]string
	WorkingDir string
	Command    []string
	Image      string
	Platform   string
	Mounts     []Mount
}

// Environ returns the environment as sorted KEY=VALUE pairs.
func (c RunConfig) Environ() []string {
	keys := slices.Sorted(maps.Keys(c.Env))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

// ParseEnvAssignments parses KEY=VALUE pairs. Later assignments win.
func ParseEnvAssignments(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || !envKeyPattern.MatchString(key) {
			return nil, zerr.With(ErrInvalidEnvAssignment, "assignment", pair)
		}
		env[key] = value
	}
	return env, nil
}

// JobEnvironment returns the environment a job runs with. The pinned extras
// and LUMENV_* variables override anything of the same name in job.Env.
// ref is the exact reference the snapshot was fetched through.
func JobEnvironment(job JobSpec, ref string, d digest.Digest, s *Snapshot) map[string]string {
	env := make(map[string]string, len(job.Env)+5)
	maps.Copy(env, job.Env)
	env[EnvExtraConda] = FormatExtraPackages(ManagerConda, s.Packages)
	env[EnvExtraPip] = FormatExtraPackages(ManagerPip, s.Packages)
	env[EnvSnapshot] = d.String()
	env[EnvChannel] = ref
	env[EnvFlowModule] = job.FlowModule
	return env
}

// JobCommand appends the flow module to the runner.
func JobCommand(runner []string, module string) []string {
	return append(slices.Clone(runner), module)
}
