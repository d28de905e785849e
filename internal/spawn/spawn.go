// Package spawn starts backend commands without waiting for them. A
// successful Start means the command was accepted for dispatch; its exit
// status is only logged.
package spawn

import (
	"os"
	"os/exec"
	"strings"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
)

// Command is a fully expanded backend invocation.
type Command struct {
	Name string
	Args []string
	// Env entries are added to the inherited environment.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Spawner starts commands fire-and-forget.
type Spawner interface {
	Start(cmd Command) error
}

type execSpawner struct {
	logger logger.Logger
}

// New returns a Spawner backed by os/exec. Each started process is reaped by
// its own goroutine.
func New(log logger.Logger) Spawner {
	return &execSpawner{logger: log}
}

func (s *execSpawner) Start(c Command) error {
	errFactory := errors.New()

	cmd := exec.Command(c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return errFactory.Wrap(errors.ErrSpawnFailed, err).WithMessage("Failed to start " + c.Name)
	}

	s.logger.Debug().Str("command", c.String()).Int("pid", cmd.Process.Pid).Msg("Command started")

	go s.reap(c, cmd)

	return nil
}

func (s *execSpawner) reap(c Command, cmd *exec.Cmd) {
	if err := cmd.Wait(); err != nil {
		s.logger.Warn().Str("command", c.String()).Err(err).Msg("Command exited with error")
		return
	}

	s.logger.Debug().Str("command", c.String()).Msg("Command finished")
}

// Elevated wraps c in a non-interactive sudo call. Environment entries are
// forwarded explicitly since sudo resets the environment.
func Elevated(c Command) Command {
	args := []string{"-n"}

	if len(c.Env) > 0 {
		names := make([]string, 0, len(c.Env))
		for _, kv := range c.Env {
			name, _, _ := strings.Cut(kv, "=")
			names = append(names, name)
		}
		args = append(args, "--preserve-env="+strings.Join(names, ","))
	}

	args = append(args, c.Name)
	args = append(args, c.Args...)

	return Command{Name: "sudo", Args: args, Env: c.Env}
}
