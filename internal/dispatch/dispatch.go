// Package dispatch routes a requested tunable value to the control point the
// resolver picked. It holds every conversion from user units to backend
// units and makes exactly one write attempt per call.
package dispatch

import (
	"context"
	"strconv"

	"codeberg.org/mutker/tweakctl/internal/capability"
	"codeberg.org/mutker/tweakctl/internal/display"
	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/spawn"
	"codeberg.org/mutker/tweakctl/internal/tunable"
)

// Dispatcher applies tunable values.
type Dispatcher struct {
	resolver *capability.Resolver
	display  *display.Analyzer
	writer   Writer
	spawner  spawn.Spawner
	logger   logger.Logger
}

type Option func(*Dispatcher)

func WithWriter(w Writer) Option {
	return func(d *Dispatcher) {
		d.writer = w
	}
}

func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = log
	}
}

func New(resolver *capability.Resolver, analyzer *display.Analyzer, spawner spawn.Spawner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		display:  analyzer,
		writer:   FSWriter(),
		spawner:  spawner,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Apply requests value v for t. For commands and scripts success means the
// backend was started, not that the value took effect; the next refresh
// shows the outcome. Errors carry one of the control error codes.
func (d *Dispatcher) Apply(ctx context.Context, t tunable.Tunable, v int) error {
	errFactory := errors.New()

	if !t.Valid() {
		return errFactory.WithData(errors.ErrInvalidArgument, t.String())
	}

	if b, ok := tunable.StaticBounds(t); ok && !b.Contains(v) {
		return outOfRange(t, v, b)
	}

	// Refresh rates have no declared range: the analyzer picks a matching
	// mode or falls back to a rate-only request, and reports NoSuchMode
	// when no output is connected.
	if t == tunable.DisplayRefreshRate {
		if v <= 0 {
			return errFactory.WithMessage(errors.ErrOutOfRange, "refresh rate must be positive")
		}
		d.logger.Debug().Str("tunable", t.String()).Int("value", v).Msg("Applying")
		return d.display.SelectRate(ctx, v)
	}

	c := d.resolver.Resolve(ctx, t)

	if c.Bounds != nil && !c.Bounds.Contains(v) {
		return outOfRange(t, v, *c.Bounds)
	}

	if !c.Available || c.Active == nil {
		msg := t.String() + " has no control path"
		if c.NeedsElevation {
			msg = t.String() + " requires elevation"
		}
		return errFactory.WithMessage(errors.ErrUnavailable, msg)
	}

	cp := *c.Active
	d.logger.Debug().
		Str("tunable", t.String()).
		Int("value", v).
		Str("control", cp.Describe()).
		Msg("Applying")

	switch cp.Kind {
	case tunable.FilesystemNode:
		raw, err := nodeValue(t, cp, v)
		if err != nil {
			return err
		}
		return d.writer.Write(ctx, cp.Path, []byte(raw+"\n"), cp.Privileged)
	case tunable.VendorScript, tunable.ExternalCommand:
		return d.spawner.Start(d.command(t, cp, v))
	default:
		return errFactory.WithData(errors.ErrInternal, cp.Kind.String())
	}
}

func (d *Dispatcher) command(t tunable.Tunable, cp tunable.ControlPoint, v int) spawn.Command {
	cmd := spawn.Command{
		Name: cp.Executable,
		Args: cp.Expand(commandValue(t, cp, v)),
		Env:  cp.Env,
	}

	if cp.Privileged && !d.resolver.Privilege().Root() {
		cmd = spawn.Elevated(cmd)
	}

	return cmd
}

// Tools that take a percentage with its sign, e.g. "rocm-smi --setfan 40%".
var percentSuffixed = map[string]bool{
	"rocm-smi":      true,
	"brightnessctl": true,
}

// commandValue is the argument scripts and commands receive. Percentages,
// watts and GPU power pass through unchanged except for tools listed in
// percentSuffixed.
func commandValue(t tunable.Tunable, cp tunable.ControlPoint, v int) string {
	switch t {
	case tunable.PowerProfile:
		return tunable.ProfileName(v)
	case tunable.GPUMode:
		return tunable.GPUModeName(v)
	}

	value := strconv.Itoa(v)
	if cp.Kind == tunable.ExternalCommand && percentSuffixed[cp.Executable] {
		value += "%"
	}

	return value
}

// nodeValue converts v into the raw string a sysfs attribute takes.
func nodeValue(t tunable.Tunable, cp tunable.ControlPoint, v int) (string, error) {
	errFactory := errors.New()

	switch t {
	case tunable.PowerProfile:
		name, ok := tunable.PlatformProfileName(v, cp.Choices)
		if !ok {
			return "", errFactory.WithMessage(errors.ErrOutOfRange, "firmware offers no "+tunable.ProfileName(v)+" profile")
		}
		return name, nil
	case tunable.CPUPowerLimit:
		return strconv.FormatInt(int64(v)*int64(cp.Scale), 10), nil
	case tunable.CPUFanSpeed, tunable.KeyboardBacklight, tunable.ScreenBrightness:
		return strconv.Itoa(scaleDown(v, cp.Scale)), nil
	case tunable.BatteryChargeLimit:
		return strconv.Itoa(v), nil
	default:
		return "", errFactory.WithData(errors.ErrInternal, "no filesystem conversion for "+t.String())
	}
}

// scaleDown maps a percentage onto 0..full.
func scaleDown(percent, full int) int {
	return percent * full / 100
}

func outOfRange(t tunable.Tunable, v int, b tunable.Bounds) error {
	return errors.New().WithMessage(
		errors.ErrOutOfRange,
		t.String()+" "+strconv.Itoa(v)+" outside "+strconv.Itoa(b.Min)+".."+strconv.Itoa(b.Max),
	)
}
