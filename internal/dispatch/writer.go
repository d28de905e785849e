package dispatch

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"golang.org/x/sys/unix"
)

const elevatedWriteTimeout = 3 * time.Second

// Writer writes a sysfs attribute.
type Writer interface {
	// Write stores data at path. With elevated set the write goes through
	// sudo unless the process already runs as root.
	Write(ctx context.Context, path string, data []byte, elevated bool) error
}

type fsWriter struct{}

// FSWriter returns the Writer used on a real system.
func FSWriter() Writer {
	return fsWriter{}
}

func (fsWriter) Write(ctx context.Context, path string, data []byte, elevated bool) error {
	if !elevated || unix.Geteuid() == 0 {
		return writeDirect(path, data)
	}

	return writeSudo(ctx, path, data)
}

// writeDirect never creates path; a missing attribute is an error.
func writeDirect(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return classifyWriteError(path, err)
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return classifyWriteError(path, err)
	}

	return nil
}

func writeSudo(ctx context.Context, path string, data []byte) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, elevatedWriteTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sudo", "-n", "tee", path)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = nil

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errFactory.Wrap(errors.ErrSpawnFailed, err)
	}

	err := cmd.Wait()

	return classifySudoError(ctx, path, stderr.Bytes(), err)
}

// classifySudoError maps the outcome of "sudo -n tee". A helper that never
// finishes counts as one that could not be started; a non-zero exit means
// sudo refused or tee could not open the node.
func classifySudoError(ctx context.Context, path string, stderr []byte, err error) error {
	errFactory := errors.New()

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errFactory.WithData(errors.ErrSpawnFailed, "sudo tee "+path+": "+ctx.Err().Error())
	}

	return errFactory.WithData(errors.ErrPermissionDenied, path+": "+string(bytes.TrimSpace(stderr)))
}

// classifyWriteError maps a direct write failure. A node that vanished since
// resolution is unavailable; anything else the kernel rejects is
// ErrOperationFailed.
func classifyWriteError(path string, err error) error {
	errFactory := errors.New()

	switch {
	case errors.Is(err, os.ErrPermission):
		return errFactory.WithData(errors.ErrPermissionDenied, path)
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENODEV):
		return errFactory.WithData(errors.ErrUnavailable, path)
	default:
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}
}
