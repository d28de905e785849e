package probe

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/sysfs"
)

// MaxTimeout bounds every probe command.
const MaxTimeout = 3 * time.Second

// Vendor script names, one per tunable family.
const (
	ScriptPowerMode   = "set_power_mode.sh"
	ScriptCPUPower    = "set_cpu_power.sh"
	ScriptCPUFan      = "set_fan.sh"
	ScriptGPUPower    = "set_gpu_power.sh"
	ScriptGPUFan      = "set_gpu_fan.sh"
	ScriptRefreshRate = "set_refresh_rate.sh"
	ScriptKbdLight    = "set_backlight.sh"
	ScriptBrightness  = "set_brightness.sh"
	ScriptChargeLimit = "set_charge_limit.sh"
	ScriptGPUSwitch   = "set_gpu_switch.sh"
)

var discreteVendorTokens = []string{"nvidia", "amd", "advanced micro devices", "radeon", "ati "}

// Checker answers availability questions about external utilities and vendor
// scripts.
type Checker struct {
	runner    Runner
	prober    *sysfs.Prober
	vendorDir string
	display   string
	timeout   time.Duration
	log       logger.Logger
}

type Option func(*Checker)

func WithRunner(r Runner) Option {
	return func(c *Checker) {
		c.runner = r
	}
}

func WithVendorDir(dir string) Option {
	return func(c *Checker) {
		c.vendorDir = dir
	}
}

// WithDisplay sets the X display handed to display-bound tools.
func WithDisplay(display string) Option {
	return func(c *Checker) {
		c.display = display
	}
}

// WithTimeout sets the per-probe timeout, capped at MaxTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Checker) {
		c.log = log
	}
}

func NewChecker(prober *sysfs.Prober, opts ...Option) *Checker {
	c := &Checker{
		runner:  ExecRunner(),
		prober:  prober,
		display: os.Getenv("DISPLAY"),
		timeout: MaxTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.timeout <= 0 || c.timeout > MaxTimeout {
		c.timeout = MaxTimeout
	}

	return c
}

func (c *Checker) Timeout() time.Duration {
	return c.timeout
}

// DisplayEnv returns the environment entries display-bound tools need, or
// nil when no display is configured.
func (c *Checker) DisplayEnv() []string {
	if c.display == "" {
		return nil
	}

	return []string{"DISPLAY=" + c.display}
}

// VendorScript returns the path of a vendor script if it exists on disk.
func (c *Checker) VendorScript(name string) (string, bool) {
	if c.vendorDir == "" {
		return "", false
	}

	path := filepath.Join(c.vendorDir, name)
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return "", false
	}

	return path, true
}

// CommandExists reports whether name resolves on PATH.
func (c *Checker) CommandExists(name string) bool {
	_, ok := c.runner.LookPath(name)
	return ok
}

// Query runs a read-only command under the probe timeout. Failures are logged
// at debug and reported as ok=false.
func (c *Checker) Query(ctx context.Context, env []string, name string, args ...string) ([]byte, bool) {
	if !c.CommandExists(name) {
		c.log.Debug().Str("command", name).Msg("Command not found")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Output(ctx, env, name, args...)
	if err != nil {
		if errors.HasCode(err, errors.ErrProbeTimeout) || ctx.Err() != nil {
			c.log.Debug().Str("command", name).Str("error_code", string(errors.ErrProbeTimeout)).Msg("Probe timed out")
		} else {
			c.log.Debug().Str("command", name).Err(err).Msg("Probe failed")
		}
		return nil, false
	}

	return out, true
}

// HasDedicatedGPU reports whether PCI enumeration lists a 3D controller or a
// VGA controller from a discrete GPU vendor.
func (c *Checker) HasDedicatedGPU(ctx context.Context) bool {
	out, ok := c.Query(ctx, nil, "lspci", "-nn")
	if !ok {
		return false
	}

	return parseDedicatedGPU(out)
}

func parseDedicatedGPU(out []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "3D controller") {
			return true
		}
		if !strings.Contains(line, "VGA") {
			continue
		}

		lower := strings.ToLower(line)
		for _, token := range discreteVendorTokens {
			if strings.Contains(lower, token) {
				return true
			}
		}
	}

	return false
}

// NvidiaFanControl reports whether nvidia-settings answers a fan control
// state query. It needs a display.
func (c *Checker) NvidiaFanControl(ctx context.Context) bool {
	if c.display == "" {
		c.log.Debug().Str("command", "nvidia-settings").Msg("No display, skipping probe")
		return false
	}

	_, ok := c.Query(ctx, c.DisplayEnv(), "nvidia-settings", "-q", "[gpu:0]/GPUFanControlState")

	return ok
}

// RocmFanControl reports whether rocm-smi reports fan data.
func (c *Checker) RocmFanControl(ctx context.Context) bool {
	out, ok := c.Query(ctx, nil, "rocm-smi", "--showfan")

	return ok && len(bytes.TrimSpace(out)) > 0
}

// GPUFanControlAvailable is true only with a dedicated GPU and at least one
// working fan control path.
func (c *Checker) GPUFanControlAvailable(ctx context.Context) bool {
	if !c.HasDedicatedGPU(ctx) {
		return false
	}

	if _, ok := c.VendorScript(ScriptGPUFan); ok {
		return true
	}

	return c.NvidiaFanControl(ctx) || c.RocmFanControl(ctx)
}

// CPUPowerControlAvailable is true if powercap reports a maximum or the CPU
// power vendor script exists.
func (c *Checker) CPUPowerControlAvailable(context.Context) bool {
	if c.prober.FindPowercapLimits().Max != nil {
		return true
	}

	_, ok := c.VendorScript(ScriptCPUPower)

	return ok
}

// PowerProfile returns the active profile reported by powerprofilesctl.
func (c *Checker) PowerProfile(ctx context.Context) (string, bool) {
	out, ok := c.Query(ctx, nil, "powerprofilesctl", "get")
	if !ok {
		return "", false
	}

	profile := strings.TrimSpace(string(out))

	return profile, profile != ""
}
