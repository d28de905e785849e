package display

import (
	"context"
	"math"
	"strconv"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/probe"
	"codeberg.org/mutker/tweakctl/internal/spawn"
)

// Analyzer lists and selects refresh rates on the current display.
type Analyzer struct {
	checker *probe.Checker
	spawner spawn.Spawner
	logger  logger.Logger
}

func NewAnalyzer(checker *probe.Checker, spawner spawn.Spawner, log logger.Logger) *Analyzer {
	return &Analyzer{
		checker: checker,
		spawner: spawner,
		logger:  log,
	}
}

// Output queries xrandr for the connected output.
func (a *Analyzer) Output(ctx context.Context) (Output, bool) {
	out, ok := a.checker.Query(ctx, a.checker.DisplayEnv(), "xrandr", "--current")
	if !ok {
		return Output{}, false
	}

	o, ok := Parse(out)
	if !ok {
		a.logger.Debug().Str("command", "xrandr").Msg("No connected output")
	}

	return o, ok
}

// ListModes returns the bucketed refresh rates of the connected output, or
// nothing when no output can be read.
func (a *Analyzer) ListModes(ctx context.Context) []Mode {
	o, ok := a.Output(ctx)
	if !ok {
		return nil
	}

	return Bucket(o.Modes)
}

// CurrentRate returns the label of the active mode's rate.
func (a *Analyzer) CurrentRate(ctx context.Context) (int, bool) {
	o, ok := a.Output(ctx)
	if !ok {
		return 0, false
	}

	m, ok := o.Current()
	if !ok {
		return 0, false
	}

	return int(math.RoundToEven(m.Hz)), true
}

// Script returns the vendor refresh-rate script, if installed.
func (a *Analyzer) Script() (string, bool) {
	return a.checker.VendorScript(probe.ScriptRefreshRate)
}

// SelectRate requests hz on the connected output. A vendor script takes
// precedence and receives hz verbatim. Otherwise the first advertised mode
// within MatchTolerance is requested explicitly, falling back to a rate-only
// request on the current mode.
func (a *Analyzer) SelectRate(ctx context.Context, hz int) error {
	errFactory := errors.New()

	if hz <= 0 {
		return errFactory.WithData(errors.ErrOutOfRange, hz)
	}

	if script, ok := a.Script(); ok {
		return a.spawner.Start(spawn.Command{
			Name: "bash",
			Args: []string{script, strconv.Itoa(hz)},
		})
	}

	o, ok := a.Output(ctx)
	if !ok {
		return errFactory.New(errors.ErrNoSuchMode)
	}

	return a.spawner.Start(a.rateCommand(o, hz))
}

func (a *Analyzer) rateCommand(o Output, hz int) spawn.Command {
	rate := strconv.Itoa(hz)

	args := []string{"--output", o.Name}
	if m, ok := o.Match(hz); ok {
		args = append(args, "--mode", m.Name)
	} else {
		a.logger.Debug().Str("output", o.Name).Int("hz", hz).Msg("No mode matches rate, requesting rate only")
	}
	args = append(args, "--rate", rate)

	return spawn.Command{
		Name: "xrandr",
		Args: args,
		Env:  a.checker.DisplayEnv(),
	}
}
