package capability

import (
	"context"
	"math"
	"sync"

	"codeberg.org/mutker/tweakctl/internal/display"
	"codeberg.org/mutker/tweakctl/internal/gpu"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/privilege"
	"codeberg.org/mutker/tweakctl/internal/probe"
	"codeberg.org/mutker/tweakctl/internal/profile"
	"codeberg.org/mutker/tweakctl/internal/sysfs"
	"codeberg.org/mutker/tweakctl/internal/tunable"
)

// DefaultCPUPowerMax is the watt ceiling used when powercap exposes none.
const DefaultCPUPowerMax = 150

// Resolver combines filesystem and command probes into capabilities.
type Resolver struct {
	prober      *sysfs.Prober
	checker     *probe.Checker
	display     *display.Analyzer
	gpu         gpu.Reader
	profiles    profile.Reader
	privilege   privilege.State
	cpuPowerMax int
	logger      logger.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

type Option func(*Resolver)

// WithGPU sets the NVML reader used for the GPU fan current value.
func WithGPU(g gpu.Reader) Option {
	return func(r *Resolver) {
		r.gpu = g
	}
}

// WithProfileReader sets the power-profiles-daemon reader.
func WithProfileReader(p profile.Reader) Option {
	return func(r *Resolver) {
		r.profiles = p
	}
}

func WithCPUPowerMax(watts int) Option {
	return func(r *Resolver) {
		if watts > 0 {
			r.cpuPowerMax = watts
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = log
	}
}

func NewResolver(
	prober *sysfs.Prober,
	checker *probe.Checker,
	analyzer *display.Analyzer,
	state privilege.State,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		prober:      prober,
		checker:     checker,
		display:     analyzer,
		privilege:   state,
		cpuPowerMax: DefaultCPUPowerMax,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Resolver) Privilege() privilege.State {
	return r.privilege
}

// Resolve computes the capability of t from current system state. It does
// not touch the cached snapshot.
func (r *Resolver) Resolve(ctx context.Context, t tunable.Tunable) Capability {
	return newPass(r).resolve(ctx, t)
}

// ResolveAll resolves every tunable and replaces the cached snapshot.
func (r *Resolver) ResolveAll(ctx context.Context) Snapshot {
	p := newPass(r)

	snap := make(Snapshot, len(tunable.All()))
	for _, t := range tunable.All() {
		snap[t] = p.resolve(ctx, t)
	}

	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()

	return snap.Clone()
}

// Snapshot returns the last ResolveAll result, or nil before the first one.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return nil
	}

	return r.snapshot.Clone()
}

// candidate is a control point found on the machine.
type candidate struct {
	cp tunable.ControlPoint
}

// pass memoizes expensive probes for the duration of one resolution.
type pass struct {
	r           *Resolver
	dedicated   *bool
	displayOut  *display.Output
	displayRead bool
}

func newPass(r *Resolver) *pass {
	return &pass{r: r}
}

func (p *pass) hasDedicatedGPU(ctx context.Context) bool {
	if p.dedicated == nil {
		v := p.r.checker.HasDedicatedGPU(ctx)
		p.dedicated = &v
	}

	return *p.dedicated
}

func (p *pass) output(ctx context.Context) (display.Output, bool) {
	if !p.displayRead {
		p.displayRead = true
		if o, ok := p.r.display.Output(ctx); ok {
			p.displayOut = &o
		}
	}
	if p.displayOut == nil {
		return display.Output{}, false
	}

	return *p.displayOut, true
}

func (p *pass) resolve(ctx context.Context, t tunable.Tunable) Capability {
	c := Capability{Tunable: t}
	if !t.Valid() {
		return c
	}

	var candidates []candidate
	switch t {
	case tunable.PowerProfile:
		candidates = p.powerProfile(ctx, &c)
	case tunable.CPUPowerLimit:
		candidates = p.cpuPowerLimit(ctx, &c)
	case tunable.CPUFanSpeed:
		candidates = p.cpuFanSpeed(&c)
	case tunable.GPUPowerLimit:
		candidates = p.gpuPowerLimit(ctx)
	case tunable.GPUFanSpeed:
		candidates = p.gpuFanSpeed(ctx, &c)
	case tunable.DisplayRefreshRate:
		candidates = p.refreshRate(ctx, &c)
	case tunable.KeyboardBacklight:
		candidates = p.keyboardBacklight(&c)
	case tunable.ScreenBrightness:
		candidates = p.screenBrightness(&c)
	case tunable.BatteryChargeLimit:
		candidates = p.chargeLimit(&c)
	case tunable.GPUMode:
		candidates = p.gpuMode(ctx)
	}

	if c.Bounds == nil {
		if b, ok := tunable.StaticBounds(t); ok {
			c.Bounds = boundsPtr(b)
		}
	}

	for _, cand := range candidates {
		if !p.r.privilege.Usable(cand.cp.Privileged) {
			continue
		}
		cp := cand.cp
		c.Available = true
		c.Active = &cp
		break
	}
	if !c.Available && len(candidates) > 0 {
		c.NeedsElevation = true
	}

	ev := p.r.logger.Debug().Str("tunable", t.String()).Bool("available", c.Available)
	if c.Active != nil {
		ev = ev.Str("control", c.Active.Describe())
	}
	ev.Bool("needs_elevation", c.NeedsElevation).Msg("Capability resolved")

	return c
}

// script returns the vendor script candidate, or nothing if not installed.
func (p *pass) script(name string, privileged bool) []candidate {
	path, ok := p.r.checker.VendorScript(name)
	if !ok {
		return nil
	}

	return []candidate{{cp: tunable.ControlPoint{
		Kind:       tunable.VendorScript,
		Path:       path,
		Executable: "bash",
		Args:       []string{path, tunable.ValuePlaceholder},
		Privileged: privileged,
	}}}
}

// command returns a mutating external command candidate if name is on PATH.
func (p *pass) command(name string, args []string, env []string) []candidate {
	if !p.r.checker.CommandExists(name) {
		return nil
	}

	return []candidate{{cp: tunable.ControlPoint{
		Kind:       tunable.ExternalCommand,
		Executable: name,
		Args:       args,
		Env:        env,
		Privileged: true,
	}}}
}

func node(path string, scale int, writable bool) candidate {
	return candidate{cp: tunable.ControlPoint{
		Kind:       tunable.FilesystemNode,
		Path:       path,
		Scale:      scale,
		Privileged: !writable,
	}}
}

func (p *pass) powerProfile(ctx context.Context, c *Capability) []candidate {
	var out []candidate

	pp, hasNode := p.r.prober.ReadPlatformProfile()
	if hasNode {
		n := node(pp.Path, 1, pp.Writable)
		n.cp.Choices = pp.Choices
		out = append(out, n)

		if v, ok := tunable.ProfileIndex(pp.Current); ok {
			c.Current = intPtr(v)
		}
	}

	out = append(out, p.script(probe.ScriptPowerMode, true)...)
	out = append(out, p.command("powerprofilesctl", []string{"set", tunable.ValuePlaceholder}, nil)...)

	if c.Current == nil && p.r.profiles != nil {
		if name, ok := p.r.profiles.ActiveProfile(ctx); ok {
			if v, ok := tunable.ProfileIndex(name); ok {
				c.Current = intPtr(v)
			}
		}
	}
	if c.Current == nil {
		if name, ok := p.r.checker.PowerProfile(ctx); ok {
			if v, ok := tunable.ProfileIndex(name); ok {
				c.Current = intPtr(v)
			}
		}
	}

	return out
}

// CPUPowerBounds returns the accepted watt range: 1 up to the powercap
// maximum, or up to the configured ceiling when powercap reports none.
func (r *Resolver) CPUPowerBounds(reading sysfs.PowercapReading) tunable.Bounds {
	maxWatts := r.cpuPowerMax
	if reading.Max != nil {
		if w := int(math.Floor(*reading.Max)); w >= 1 {
			maxWatts = w
		}
	}

	return tunable.Bounds{Min: 1, Max: maxWatts}
}

func (p *pass) cpuPowerLimit(ctx context.Context, c *Capability) []candidate {
	reading := p.r.prober.FindPowercapLimits()
	if reading.Current != nil {
		c.Current = intPtr(int(math.Round(*reading.Current)))
	}
	c.Bounds = boundsPtr(p.r.CPUPowerBounds(reading))

	if !p.r.checker.CPUPowerControlAvailable(ctx) {
		return nil
	}

	var out []candidate
	if reading.LimitPath != "" {
		out = append(out, node(reading.LimitPath, 1_000_000, p.r.prober.Writable(reading.LimitPath)))
	}

	return append(out, p.script(probe.ScriptCPUPower, true)...)
}

// The vendor fan script goes first: it drives the embedded controller's fan
// curve, raw PWM writes do not.
func (p *pass) cpuFanSpeed(c *Capability) []candidate {
	out := p.script(probe.ScriptCPUFan, true)

	if path, ok := p.r.prober.FindWritablePwmChannel(); ok {
		out = append(out, node(path, sysfs.PWMMax, true))
	}
	if path, ok := p.r.prober.FindPwmChannel(); ok {
		if v, ok := p.r.prober.ReadPWMPercent(path); ok {
			c.Current = intPtr(v)
		}
	}

	return out
}

func (p *pass) gpuPowerLimit(ctx context.Context) []candidate {
	out := p.script(probe.ScriptGPUPower, true)
	if len(out) == 0 || !p.hasDedicatedGPU(ctx) {
		return nil
	}

	return out
}

func (p *pass) gpuFanSpeed(ctx context.Context, c *Capability) []candidate {
	if p.r.gpu != nil {
		if v, err := p.r.gpu.FanSpeed(); err == nil {
			c.Current = intPtr(int(v))
		}
	}

	if !p.hasDedicatedGPU(ctx) {
		return nil
	}

	out := p.script(probe.ScriptGPUFan, true)

	if p.r.checker.NvidiaFanControl(ctx) {
		out = append(out, p.command("nvidia-settings", []string{
			"-a", "[gpu:0]/GPUFanControlState=1",
			"-a", "[fan:0]/GPUTargetFanSpeed=" + tunable.ValuePlaceholder,
		}, p.r.checker.DisplayEnv())...)
	}
	if p.r.checker.RocmFanControl(ctx) {
		out = append(out, p.command("rocm-smi", []string{"--setfan", tunable.ValuePlaceholder}, nil)...)
	}

	return out
}

func (p *pass) refreshRate(ctx context.Context, c *Capability) []candidate {
	out := p.script(probe.ScriptRefreshRate, false)

	if o, ok := p.output(ctx); ok {
		if m, ok := o.Current(); ok {
			c.Current = intPtr(int(math.RoundToEven(m.Hz)))
		}

		out = append(out, candidate{cp: tunable.ControlPoint{
			Kind:       tunable.ExternalCommand,
			Executable: "xrandr",
			Args:       []string{"--output", o.Name, "--rate", tunable.ValuePlaceholder},
			Env:        p.r.checker.DisplayEnv(),
		}})
	}

	return out
}

func (p *pass) keyboardBacklight(c *Capability) []candidate {
	var out []candidate

	b, ok := p.r.prober.ReadKeyboardBacklightPaths()
	if ok {
		out = append(out, node(b.Path, b.Max, b.Writable))
		if v, ok := p.r.prober.BacklightPercent(b); ok {
			c.Current = intPtr(v)
		}
	}

	out = append(out, p.script(probe.ScriptKbdLight, true)...)
	if ok {
		out = append(out, p.command("brightnessctl", []string{
			"--device=" + sysfs.LEDName(b), "set", tunable.ValuePlaceholder,
		}, nil)...)
	}

	return out
}

func (p *pass) screenBrightness(c *Capability) []candidate {
	var out []candidate

	b, ok := p.r.prober.ReadBacklightPaths()
	if ok {
		out = append(out, node(b.Path, b.Max, b.Writable))
		if v, ok := p.r.prober.BacklightPercent(b); ok {
			c.Current = intPtr(v)
		}
	}

	out = append(out, p.script(probe.ScriptBrightness, true)...)
	if ok {
		out = append(out, p.command("brightnessctl", []string{
			"--class=backlight", "set", tunable.ValuePlaceholder,
		}, nil)...)
	}

	return out
}

func (p *pass) chargeLimit(c *Capability) []candidate {
	var out []candidate

	if cc, ok := p.r.prober.ReadChargeControlPaths(); ok {
		out = append(out, node(cc.Path, 1, cc.Writable))
		if v, ok := p.r.prober.ReadInt(cc.Path); ok {
			c.Current = intPtr(int(v))
		}
	}

	out = append(out, p.script(probe.ScriptChargeLimit, true)...)

	return append(out, p.command("asusctl", []string{"--chg-limit", tunable.ValuePlaceholder}, nil)...)
}

func (p *pass) gpuMode(ctx context.Context) []candidate {
	out := p.script(probe.ScriptGPUSwitch, true)
	if len(out) == 0 || !p.hasDedicatedGPU(ctx) {
		return nil
	}

	return out
}
