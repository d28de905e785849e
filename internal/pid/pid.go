// Package pid guards long-running commands against concurrent instances.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"github.com/adrg/xdg"
)

// File is a PID file in the user's runtime directory.
type File struct {
	path string
}

// New returns the PID file for name, e.g. "tweakctl-autorate.pid".
func New(name string) File {
	dir := xdg.RuntimeDir
	if dir == "" {
		dir = os.TempDir()
	}

	return File{path: filepath.Join(dir, name)}
}

// At returns a PID file at an explicit path.
func At(path string) File {
	return File{path: path}
}

func (f File) Path() string {
	return f.path
}

// Write records the current process ID. It fails with ErrAlreadyRunning if
// the file names a live process. Stale files are overwritten.
func (f File) Write() error {
	errFactory := errors.New()

	if _, err := os.Stat(f.path); err == nil {
		bytes, err := os.ReadFile(f.path)
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err)
		}

		if pid, err := strconv.Atoi(strings.TrimSpace(string(bytes))); err == nil && pid != os.Getpid() {
			process, err := os.FindProcess(pid)
			if err == nil && process.Signal(syscall.Signal(0)) == nil {
				return errFactory.WithData(errors.ErrAlreadyRunning, pid)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func (f File) Remove() error {
	errFactory := errors.New()

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(f.path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
