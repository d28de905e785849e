// Package privilege holds the process-wide elevation state. It is decided
// once at session start and read-only afterwards.
package privilege

import (
	"context"
	"os"
	"os/exec"

	"codeberg.org/mutker/tweakctl/internal/logger"
	"golang.org/x/sys/unix"
)

// Elevator asks the user for elevated rights.
type Elevator interface {
	RequestElevation(ctx context.Context) bool
}

// State records whether privileged writes may be attempted.
type State struct {
	elevated bool
	root     bool
}

// NewState builds a State from an explicit decision. Tests use this
// directly; the session uses Establish.
func NewState(elevated bool) State {
	return State{elevated: elevated}
}

// Establish asks elev once and returns the resulting state. A nil elev means
// elevation was not requested and only root counts as elevated.
func Establish(ctx context.Context, elev Elevator, log logger.Logger) State {
	if unix.Geteuid() == 0 {
		log.Debug().Msg("Running as root")
		return State{elevated: true, root: true}
	}

	if elev == nil {
		log.Debug().Msg("Elevation not requested, running read-only")
		return State{}
	}

	if !elev.RequestElevation(ctx) {
		log.Warn().Msg("Elevation refused, privileged controls are unavailable")
		return State{}
	}

	log.Debug().Msg("Elevation granted")

	return State{elevated: true}
}

func (s State) Elevated() bool {
	return s.elevated
}

// Root reports whether the process itself runs as root, in which case
// commands need no sudo prefix.
func (s State) Root() bool {
	return s.root
}

// Usable reports whether a control point with the given privilege
// requirement may be used under this state.
func (s State) Usable(privileged bool) bool {
	return !privileged || s.elevated
}

// Sudo validates cached sudo credentials, prompting on the terminal when
// needed.
type Sudo struct {
	Interactive bool
}

func (s Sudo) RequestElevation(ctx context.Context) bool {
	args := []string{"-v"}
	if !s.Interactive {
		args = []string{"-n", "-v"}
	}

	cmd := exec.CommandContext(ctx, "sudo", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	return cmd.Run() == nil
}
