package testenv

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schmitthub/testenv/internal/logger"
	"github.com/schmitthub/testenv/pkg/whail"
)

// namePattern is what the daemon accepts as a container or network name.
const namePattern = `^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`

var nameRe = regexp.MustCompile(namePattern)

func validName(s string) bool {
	return nameRe.MatchString(s)
}

// DeclarationKind says what a Declaration adds to the environment.
type DeclarationKind int

const (
	DeclareDependency DeclarationKind = iota
	DeclareContainer
	DeclareNetwork
)

// Declaration is one dependency added to a Builder, in declaration order.
// Containers and networks are materialized at Build so their resource names
// use the final environment name.
type Declaration struct {
	Kind           DeclarationKind
	Local          string
	Image          string
	Options        []ContainerOption
	NetworkOptions []NetworkOption
	Dependency     Dependency
}

// Config is the accumulated state of a Builder.
type Config struct {
	Name         string
	Variables    Variables
	DinD         bool
	Parallel     bool
	ReadyTimeout time.Duration
	Logger       *zerolog.Logger
	Declarations []Declaration
}

// ResourceName returns "{Name}-{local}".
func (c Config) ResourceName(local string) string {
	return c.Name + "-" + local
}

func (c Config) clone() Config {
	c.Variables = c.Variables.Clone()
	c.Declarations = slices.Clone(c.Declarations)
	return c
}

// Builder accumulates an Environment. Every method returns the builder for
// chaining. An invalid argument is recorded, leaves the builder unchanged and
// is returned by Err and Build.
type Builder struct {
	engine *whail.Engine
	cfg    Config
	errs   []error
}

// NewBuilder returns a builder creating containers and networks on engine.
// engine may be nil when only AddDependency is used.
func NewBuilder(engine *whail.Engine) *Builder {
	return &Builder{
		engine: engine,
		cfg: Config{
			Variables:    Variables{},
			ReadyTimeout: DefaultReadyTimeout,
		},
	}
}

func (b *Builder) fail(op string, err error) *Builder {
	b.errs = append(b.errs, fmt.Errorf("%s: %w", op, err))
	return b
}

// Err returns every error recorded so far, or nil.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Config returns a copy of the accumulated configuration.
func (b *Builder) Config() Config {
	return b.cfg.clone()
}

// AddDependency appends an already constructed dependency.
func (b *Builder) AddDependency(dep Dependency) *Builder {
	if dep == nil {
		return b.fail("add dependency", invalidArg("dependency must not be nil"))
	}
	b.cfg.Declarations = append(b.cfg.Declarations, Declaration{Kind: DeclareDependency, Dependency: dep})
	return b
}

// SetName sets the environment name. Without it Build generates one.
func (b *Builder) SetName(name string) *Builder {
	name = strings.TrimSpace(name)
	if name == "" {
		return b.fail("set name", invalidArg("environment name must not be empty"))
	}
	if !validName(name) {
		return b.fail("set name", invalidArg("environment name %q must match %s", name, namePattern))
	}
	b.cfg.Name = name
	return b
}

// SetVariables adds shared variables. A name that is already set fails with
// ErrDuplicateKey and none of pairs is added.
func (b *Builder) SetVariables(pairs ...Variable) *Builder {
	if err := b.cfg.Variables.Add(pairs...); err != nil {
		return b.fail("set variables", err)
	}
	return b
}

// AddContainer declares a container named "{environment}-{local}" running
// image. The tag defaults to "latest"; set it and per-container variables
// with WithTag and WithEnv.
func (b *Builder) AddContainer(local, image string, opts ...ContainerOption) *Builder {
	local = strings.TrimSpace(local)
	image = strings.TrimSpace(image)
	if local == "" {
		return b.fail("add container", invalidArg("container name must not be empty"))
	}
	if !validName(local) {
		return b.fail("add container", invalidArg("container name %q must match %s", local, namePattern))
	}
	if image == "" {
		return b.fail("add container", invalidArg("container %s: image must not be empty", local))
	}
	if err := applyContainerOptions(&Container{}, opts); err != nil {
		return b.fail("add container", fmt.Errorf("container %s: %w", local, err))
	}
	b.cfg.Declarations = append(b.cfg.Declarations, Declaration{
		Kind:    DeclareContainer,
		Local:   local,
		Image:   image,
		Options: slices.Clone(opts),
	})
	return b
}

// AddNetwork declares a network named "{environment}-{local}". Containers
// join it with WithNetwork(local).
func (b *Builder) AddNetwork(local string, opts ...NetworkOption) *Builder {
	local = strings.TrimSpace(local)
	if local == "" {
		return b.fail("add network", invalidArg("network name must not be empty"))
	}
	if !validName(local) {
		return b.fail("add network", invalidArg("network name %q must match %s", local, namePattern))
	}
	for _, opt := range opts {
		if err := opt(&Network{}); err != nil {
			return b.fail("add network", fmt.Errorf("network %s: %w", local, err))
		}
	}
	b.cfg.Declarations = append(b.cfg.Declarations, Declaration{
		Kind:           DeclareNetwork,
		Local:          local,
		NetworkOptions: slices.Clone(opts),
	})
	return b
}

// DockerInDocker makes every dependency resolve endpoints from inside a
// parent container.
func (b *Builder) DockerInDocker() *Builder {
	b.cfg.DinD = true
	return b
}

// WithLogger replaces the default logger.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.cfg.Logger = &l
	return b
}

// WithReadyTimeout bounds each dependency's readiness wait during Start.
func (b *Builder) WithReadyTimeout(d time.Duration) *Builder {
	if d <= 0 {
		return b.fail("ready timeout", invalidArg("ready timeout must be positive: %v", d))
	}
	b.cfg.ReadyTimeout = d
	return b
}

// Parallel starts dependencies concurrently instead of in declaration order.
// Teardown stays sequential in reverse order.
func (b *Builder) Parallel() *Builder {
	b.cfg.Parallel = true
	return b
}

// UseDefaultNetwork is not supported yet.
func (b *Builder) UseDefaultNetwork() *Builder {
	return b.fail("use default network", ErrNotImplemented)
}

// AddFromCompose is not supported yet.
func (b *Builder) AddFromCompose(r io.Reader) *Builder {
	if r == nil {
		return b.fail("add from compose", invalidArg("compose source must not be nil"))
	}
	return b.fail("add from compose", ErrNotImplemented)
}

// AddFromDockerfile is not supported yet.
func (b *Builder) AddFromDockerfile(r io.Reader) *Builder {
	if r == nil {
		return b.fail("add from dockerfile", invalidArg("dockerfile source must not be nil"))
	}
	return b.fail("add from dockerfile", ErrNotImplemented)
}

// Build materializes the Environment. It fails with every recorded builder
// error, with ErrDuplicateKey when two dependencies share a resource name and
// with ErrConflict when a dependency already belongs to another environment.
func (b *Builder) Build() (*Environment, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}

	cfg := b.cfg.clone()
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()[:10]
	}

	base := logger.Default()
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	log := base.With().Str("environment", cfg.Name).Logger()

	labelPrefix := whail.DefaultLabelPrefix
	if b.engine != nil {
		labelPrefix = b.engine.Options().LabelPrefix
	}

	env := &Environment{
		name:         cfg.Name,
		locals:       make(map[string]int),
		logger:       log,
		vars:         cfg.Variables,
		readyTimeout: cfg.ReadyTimeout,
		parallel:     cfg.Parallel,
	}

	networks := make(map[string]string)
	seen := make(map[string]struct{}, len(cfg.Declarations))
	for _, decl := range cfg.Declarations {
		dep, err := b.materialize(cfg, decl)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[dep.Name()]; dup {
			return nil, fmt.Errorf("%w: dependency %s declared twice", ErrDuplicateKey, dep.Name())
		}
		seen[dep.Name()] = struct{}{}
		if decl.Local != "" {
			env.locals[decl.Local] = len(env.deps)
		}
		if decl.Kind == DeclareNetwork {
			networks[decl.Local] = dep.Name()
		}
		env.deps = append(env.deps, dep)
	}

	rt := Runtime{
		Environment: cfg.Name,
		Labels:      map[string]string{labelPrefix + "." + LabelEnvironment: cfg.Name},
		Logger:      log,
		DinD:        cfg.DinD,
		Variables:   cfg.Variables,
		Networks:    networks,
	}
	if err := bindAll(env.deps, rt); err != nil {
		return nil, err
	}

	log.Debug().Int("dependencies", len(env.deps)).Bool("dind", cfg.DinD).Msg("environment built")
	return env, nil
}

// bindChecker reports whether Bind would fail without changing anything.
type bindChecker interface {
	checkBind(environment string) error
}

// bindAll binds deps to rt. Checked dependencies are verified up front and
// bound last, so a failed Build leaves none of them owned by rt.
func bindAll(deps []Dependency, rt Runtime) error {
	var checked []Binder
	for _, dep := range deps {
		if c, ok := dep.(bindChecker); ok {
			if err := c.checkBind(rt.Environment); err != nil {
				return err
			}
		}
	}
	for _, dep := range deps {
		binder, ok := dep.(Binder)
		if !ok {
			continue
		}
		if _, ok := dep.(bindChecker); ok {
			checked = append(checked, binder)
			continue
		}
		if err := binder.Bind(rt); err != nil {
			return err
		}
	}
	for _, binder := range checked {
		if err := binder.Bind(rt); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) materialize(cfg Config, decl Declaration) (Dependency, error) {
	switch decl.Kind {
	case DeclareContainer:
		if b.engine == nil {
			return nil, invalidArg("container %s: builder has no engine", decl.Local)
		}
		return NewContainer(b.engine, cfg.ResourceName(decl.Local), decl.Image, decl.Options...)
	case DeclareNetwork:
		if b.engine == nil {
			return nil, invalidArg("network %s: builder has no engine", decl.Local)
		}
		return NewNetwork(b.engine, cfg.ResourceName(decl.Local), decl.NetworkOptions...)
	default:
		return decl.Dependency, nil
	}
}
