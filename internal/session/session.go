// Package session wires detection and dispatch together behind the one API
// every front-end uses. Privilege is decided once, when the session opens.
package session

import (
	"context"

	"codeberg.org/mutker/tweakctl/internal/capability"
	"codeberg.org/mutker/tweakctl/internal/config"
	"codeberg.org/mutker/tweakctl/internal/dispatch"
	"codeberg.org/mutker/tweakctl/internal/display"
	"codeberg.org/mutker/tweakctl/internal/gpu"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/privilege"
	"codeberg.org/mutker/tweakctl/internal/probe"
	"codeberg.org/mutker/tweakctl/internal/profile"
	"codeberg.org/mutker/tweakctl/internal/spawn"
	"codeberg.org/mutker/tweakctl/internal/status"
	"codeberg.org/mutker/tweakctl/internal/sysfs"
	"codeberg.org/mutker/tweakctl/internal/tunable"
)

type Session struct {
	prober     *sysfs.Prober
	checker    *probe.Checker
	analyzer   *display.Analyzer
	resolver   *capability.Resolver
	dispatcher *dispatch.Dispatcher
	collector  *status.Collector

	closers []func() error
	logger  logger.Logger
}

type options struct {
	elevator  privilege.Elevator
	runner    probe.Runner
	spawner   spawn.Spawner
	writer    dispatch.Writer
	writable  func(string) bool
	status    []status.Option
	logger    logger.Logger
	nvml      bool
	dbus      bool
	gpuReader gpu.Reader
}

type Option func(*options)

// WithElevator sets the collaborator asked for elevation when the config
// enables it.
func WithElevator(e privilege.Elevator) Option {
	return func(o *options) {
		o.elevator = e
	}
}

func WithRunner(r probe.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

func WithSpawner(s spawn.Spawner) Option {
	return func(o *options) {
		o.spawner = s
	}
}

func WithWriter(w dispatch.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

func WithWritableCheck(fn func(string) bool) Option {
	return func(o *options) {
		o.writable = fn
	}
}

func WithStatusOptions(opts ...status.Option) Option {
	return func(o *options) {
		o.status = append(o.status, opts...)
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithGPU replaces NVML with the given reader.
func WithGPU(g gpu.Reader) Option {
	return func(o *options) {
		o.gpuReader = g
		o.nvml = false
	}
}

// WithoutSystemServices disables NVML and the system bus.
func WithoutSystemServices() Option {
	return func(o *options) {
		o.nvml = false
		o.dbus = false
	}
}

// Open builds a session from cfg. The elevator is consulted at most once,
// here, and only when cfg.Elevate is set.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		runner: probe.ExecRunner(),
		logger: logger.Default(),
		nvml:   true,
		dbus:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.spawner == nil {
		o.spawner = spawn.New(o.logger)
	}

	s := &Session{logger: o.logger}

	proberOpts := []sysfs.Option{sysfs.WithLogger(o.logger)}
	if o.writable != nil {
		proberOpts = append(proberOpts, sysfs.WithWritableCheck(o.writable))
	}
	s.prober = sysfs.NewProber(cfg.SysfsRoot, proberOpts...)

	s.checker = probe.NewChecker(s.prober,
		probe.WithRunner(o.runner),
		probe.WithVendorDir(cfg.VendorDir),
		probe.WithDisplay(cfg.Display),
		probe.WithTimeout(cfg.ProbeTimeout),
		probe.WithLogger(o.logger),
	)

	s.analyzer = display.NewAnalyzer(s.checker, o.spawner, o.logger)

	var elevator privilege.Elevator
	if cfg.Elevate {
		elevator = o.elevator
	}
	state := privilege.Establish(ctx, elevator, o.logger)

	reader := o.gpuReader
	if reader == nil && o.nvml {
		if g, err := gpu.Open(o.logger); err == nil {
			reader = g
			s.closers = append(s.closers, g.Close)
		} else {
			o.logger.Debug().Err(err).Msg("NVML unavailable")
		}
	}

	resolverOpts := []capability.Option{
		capability.WithCPUPowerMax(cfg.CPUPowerMax),
		capability.WithLogger(o.logger),
	}
	if reader != nil {
		resolverOpts = append(resolverOpts, capability.WithGPU(reader))
	}
	if o.dbus {
		bus := profile.NewDBus(o.logger, s.checker.Timeout())
		s.closers = append(s.closers, bus.Close)
		resolverOpts = append(resolverOpts, capability.WithProfileReader(bus))
	}
	s.resolver = capability.NewResolver(s.prober, s.checker, s.analyzer, state, resolverOpts...)

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(o.logger)}
	if o.writer != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithWriter(o.writer))
	}
	s.dispatcher = dispatch.New(s.resolver, s.analyzer, o.spawner, dispatchOpts...)

	statusOpts := append([]status.Option{status.WithLogger(o.logger)}, o.status...)
	if reader != nil {
		statusOpts = append(statusOpts, status.WithGPU(reader))
	}
	s.collector = status.NewCollector(s.prober, statusOpts...)

	return s, nil
}

// Privilege returns the state decided when the session opened.
func (s *Session) Privilege() privilege.State {
	return s.resolver.Privilege()
}

// Capabilities returns the cached snapshot, resolving once if none exists.
func (s *Session) Capabilities(ctx context.Context) capability.Snapshot {
	if snap := s.resolver.Snapshot(); snap != nil {
		return snap
	}

	return s.resolver.ResolveAll(ctx)
}

// Refresh re-resolves every tunable and replaces the cached snapshot.
func (s *Session) Refresh(ctx context.Context) capability.Snapshot {
	return s.resolver.ResolveAll(ctx)
}

// Capability resolves a single tunable from current system state.
func (s *Session) Capability(ctx context.Context, t tunable.Tunable) capability.Capability {
	return s.resolver.Resolve(ctx, t)
}

// Apply requests v for t. See dispatch.Dispatcher.Apply.
func (s *Session) Apply(ctx context.Context, t tunable.Tunable, v int) error {
	return s.dispatcher.Apply(ctx, t, v)
}

// Modes lists the connected display's refresh rates.
func (s *Session) Modes(ctx context.Context) []display.Mode {
	return s.analyzer.ListModes(ctx)
}

// SelectRate switches the refresh rate through the dispatcher, so bounds
// and availability are checked like any other tunable.
func (s *Session) SelectRate(ctx context.Context, hz int) error {
	return s.dispatcher.Apply(ctx, tunable.DisplayRefreshRate, hz)
}

// ACOnline reports the mains power state.
func (s *Session) ACOnline() (online bool, known bool) {
	return s.prober.ACOnline()
}

// Status collects live readings and the current power profile.
func (s *Session) Status(ctx context.Context) status.Status {
	st := s.collector.Collect(ctx)

	if c := s.resolver.Resolve(ctx, tunable.PowerProfile); c.Current != nil {
		st.PowerProfile = tunable.ProfileName(*c.Current)
	}

	return st
}

// Close releases NVML and the system bus connection.
func (s *Session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil

	return first
}
