// Package autorate lowers the display refresh rate on battery and restores
// it on AC.
package autorate

import (
	"context"
	"time"

	"codeberg.org/mutker/tweakctl/internal/display"
	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
)

const DefaultInterval = 2 * time.Second

// PowerSource reports whether mains power is connected.
type PowerSource interface {
	ACOnline() (online bool, known bool)
}

// Display lists and selects refresh rates.
type Display interface {
	Modes(ctx context.Context) []display.Mode
	SelectRate(ctx context.Context, hz int) error
}

type Governor struct {
	power    PowerSource
	display  Display
	acRate   int
	interval time.Duration
	logger   logger.Logger

	applied *bool
}

type Option func(*Governor)

// WithACRate sets the rate restored on AC. Zero means the highest advertised
// rate.
func WithACRate(hz int) Option {
	return func(g *Governor) {
		g.acRate = hz
	}
}

func WithInterval(d time.Duration) Option {
	return func(g *Governor) {
		if d > 0 {
			g.interval = d
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(g *Governor) {
		g.logger = log
	}
}

func New(power PowerSource, d Display, opts ...Option) *Governor {
	g := &Governor{
		power:    power,
		display:  d,
		interval: DefaultInterval,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Step checks the power source once and switches the rate if it changed
// since the last successful switch. A failed switch is attempted again on
// the next step.
func (g *Governor) Step(ctx context.Context) error {
	errFactory := errors.New()

	online, known := g.power.ACOnline()
	if !known {
		g.logger.Debug().Msg("AC state unknown")
		return nil
	}
	if g.applied != nil && *g.applied == online {
		return nil
	}

	modes := g.display.Modes(ctx)
	target, ok := g.target(online, modes)
	if !ok {
		return errFactory.WithMessage(errors.ErrNoSuchMode, "no refresh rates advertised")
	}

	if err := g.display.SelectRate(ctx, target); err != nil {
		return err
	}

	g.applied = &online
	g.logger.Info().Bool("ac", online).Int("hz", target).Msg("Refresh rate switched")

	return nil
}

func (g *Governor) target(online bool, modes []display.Mode) (int, bool) {
	if !online {
		return display.Lowest(modes)
	}
	if g.acRate > 0 {
		return g.acRate, true
	}

	return display.Highest(modes)
}

// Run steps immediately and then on every interval until ctx is done. Step
// errors are logged and do not stop the loop.
func (g *Governor) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if err := g.Step(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to switch refresh rate")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
