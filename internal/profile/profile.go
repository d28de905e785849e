// Package profile reads the active power profile from power-profiles-daemon
// over the system bus.
package profile

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"github.com/godbus/dbus/v5"
)

const (
	dbusGet = "org.freedesktop.DBus.Properties.Get"

	// DefaultTimeout bounds one ActiveProfile lookup across all services.
	DefaultTimeout = 3 * time.Second
)

type service struct {
	name string
	path dbus.ObjectPath
}

// The daemon moved under the UPower namespace in 0.20; older releases only
// answer on the hadess name.
var services = []service{
	{name: "org.freedesktop.UPower.PowerProfiles", path: "/org/freedesktop/UPower/PowerProfiles"},
	{name: "net.hadess.PowerProfiles", path: "/net/hadess/PowerProfiles"},
}

// Reader returns the active profile name.
type Reader interface {
	ActiveProfile(ctx context.Context) (string, bool)
}

// caller is the subset of dbus.BusObject used here.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// DBus reads from power-profiles-daemon. The connection is opened lazily on
// first use and kept until Close.
type DBus struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	objects func(service) caller
	failed  bool
	timeout time.Duration
	logger  logger.Logger
}

// NewDBus returns a reader whose lookups give up after timeout. A
// non-positive timeout selects DefaultTimeout.
func NewDBus(log logger.Logger, timeout time.Duration) *DBus {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &DBus{logger: log, timeout: timeout}
}

func (d *DBus) connect() bool {
	if d.objects != nil {
		return true
	}
	if d.failed {
		return false
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		d.failed = true
		d.logger.Debug().Err(err).Msg("System bus unavailable")
		return false
	}

	d.conn = conn
	d.objects = func(s service) caller {
		return conn.Object(s.name, s.path)
	}

	return true
}

// ActiveProfile returns the ActiveProfile property of the first service that
// answers. A daemon that does not answer within the timeout counts as absent.
func (d *DBus) ActiveProfile(ctx context.Context) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connect() {
		return "", false
	}

	timeout := d.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, s := range services {
		profile, err := activeProfile(ctx, d.objects(s), s.name)
		if ctx.Err() != nil {
			d.logger.Debug().Str("service", s.name).Str("error_code", string(errors.ErrProbeTimeout)).Msg("ActiveProfile query timed out")
			return "", false
		}
		if err != nil {
			d.logger.Debug().Str("service", s.name).Err(err).Msg("ActiveProfile query failed")
			continue
		}
		if profile != "" {
			return profile, true
		}
	}

	return "", false
}

func activeProfile(ctx context.Context, obj caller, iface string) (string, error) {
	errFactory := errors.New()

	var profile string
	if err := obj.CallWithContext(ctx, dbusGet, 0, iface, "ActiveProfile").Store(&profile); err != nil {
		return "", errFactory.Wrap(errors.ErrProbeFailed, err)
	}

	return profile, nil
}

func (d *DBus) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.objects = nil
	if d.conn == nil {
		return nil
	}

	err := d.conn.Close()
	d.conn = nil

	return err
}
