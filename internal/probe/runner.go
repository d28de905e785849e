// Package probe detects external control utilities. Probes only run query
// commands and stat files; a probe that fails or times out is reported as
// unavailable and never as an error.
package probe

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"codeberg.org/mutker/tweakctl/internal/errors"
)

// Runner executes short query commands.
type Runner interface {
	// Output runs name with args and returns its stdout. env entries are
	// appended to the inherited environment.
	Output(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, bool)
}

type execRunner struct{}

// ExecRunner returns a Runner backed by os/exec.
func ExecRunner() Runner {
	return execRunner{}
}

func (execRunner) Output(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	errFactory := errors.New()

	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stdin = nil

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, errFactory.Wrap(errors.ErrProbeTimeout, ctx.Err())
	}
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrProbeFailed, err)
	}

	return stdout.Bytes(), nil
}

func (execRunner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}

	return path, true
}
