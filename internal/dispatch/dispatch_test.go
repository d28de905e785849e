package dispatch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"codeberg.org/mutker/tweakctl/internal/capability"
	"codeberg.org/mutker/tweakctl/internal/display"
	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/privilege"
	"codeberg.org/mutker/tweakctl/internal/probe"
	"codeberg.org/mutker/tweakctl/internal/spawn"
	"codeberg.org/mutker/tweakctl/internal/sysfs"
	"codeberg.org/mutker/tweakctl/internal/tunable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	installed map[string]bool
	outputs   map[string]string
	calls     int
}

func (f *fakeRunner) Output(_ context.Context, _ []string, name string, args ...string) ([]byte, error) {
	f.calls++
	out, ok := f.outputs[strings.Join(append([]string{name}, args...), " ")]
	if !ok {
		return nil, errors.New().New(errors.ErrProbeFailed)
	}
	return []byte(out), nil
}

func (f *fakeRunner) LookPath(name string) (string, bool) {
	return "/usr/bin/" + name, f.installed[name]
}

type fakeSpawner struct {
	started []spawn.Command
	err     error
}

func (f *fakeSpawner) Start(c spawn.Command) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, c)
	return nil
}

type write struct {
	path     string
	data     string
	elevated bool
}

type fakeWriter struct {
	writes []write
}

func (f *fakeWriter) Write(_ context.Context, path string, data []byte, elevated bool) error {
	f.writes = append(f.writes, write{path: path, data: string(data), elevated: elevated})
	return nil
}

type rig struct {
	root     string
	vendor   string
	writable bool
	elevated bool
	runner   *fakeRunner
	spawner  *fakeSpawner
	writer   *fakeWriter
}

func newRig(t *testing.T) *rig {
	t.Helper()

	return &rig{
		root:     t.TempDir(),
		vendor:   t.TempDir(),
		elevated: true,
		runner:   &fakeRunner{installed: map[string]bool{}, outputs: map[string]string{}},
		spawner:  &fakeSpawner{},
		writer:   &fakeWriter{},
	}
}

func (r *rig) file(t *testing.T, rel, content string) string {
	t.Helper()

	path := filepath.Join(r.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (r *rig) script(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(r.vendor, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/bash\n"), 0o755))

	return path
}

func (r *rig) tool(name, query, output string) {
	r.runner.installed[name] = true
	if query != "" {
		r.runner.outputs[query] = output
	}
}

func (r *rig) dispatcher() *Dispatcher {
	prober := sysfs.NewProber(r.root, sysfs.WithWritableCheck(func(string) bool { return r.writable }))
	checker := probe.NewChecker(prober,
		probe.WithRunner(r.runner),
		probe.WithVendorDir(r.vendor),
		probe.WithDisplay(":0"),
	)
	analyzer := display.NewAnalyzer(checker, r.spawner, logger.Nop())
	resolver := capability.NewResolver(prober, checker, analyzer, privilege.NewState(r.elevated))

	return New(resolver, analyzer, r.spawner, WithWriter(r.writer))
}

func (r *rig) external() int {
	return len(r.spawner.started) + len(r.writer.writes)
}

func TestApplyOutOfRangeTouchesNothing(t *testing.T) {
	r := newRig(t)
	r.writable = true
	r.file(t, "sys/class/hwmon/hwmon0/pwm1", "100")
	r.script(t, probe.ScriptCPUFan)

	err := r.dispatcher().Apply(context.Background(), tunable.CPUFanSpeed, 150)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	assert.Zero(t, r.external())
	assert.Zero(t, r.runner.calls)

	err = r.dispatcher().Apply(context.Background(), tunable.BatteryChargeLimit, 40)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	assert.Zero(t, r.external())
}

func TestApplyUnavailableTouchesNothing(t *testing.T) {
	for _, tn := range tunable.All() {
		r := newRig(t)
		v := 0
		if b, ok := tunable.StaticBounds(tn); ok {
			v = b.Min
		}
		if tn == tunable.DisplayRefreshRate || tn == tunable.CPUPowerLimit {
			v = 60
		}

		want := errors.ErrUnavailable
		if tn == tunable.DisplayRefreshRate {
			want = errors.ErrNoSuchMode
		}

		err := r.dispatcher().Apply(context.Background(), tn, v)
		assert.Equal(t, want, errors.CodeOf(err), tn.String())
		assert.Zero(t, r.external(), tn.String())
	}
}

func TestApplyUnavailableWithoutElevation(t *testing.T) {
	r := newRig(t)
	r.elevated = false
	r.script(t, probe.ScriptChargeLimit)

	err := r.dispatcher().Apply(context.Background(), tunable.BatteryChargeLimit, 80)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "requires elevation")
	assert.Zero(t, r.external())
}

func TestApplyPWMConversion(t *testing.T) {
	r := newRig(t)
	r.writable = true
	r.elevated = false
	path := r.file(t, "sys/class/hwmon/hwmon2/pwm1", "0")

	d := r.dispatcher()
	require.NoError(t, d.Apply(context.Background(), tunable.CPUFanSpeed, 50))
	require.NoError(t, d.Apply(context.Background(), tunable.CPUFanSpeed, 100))
	require.NoError(t, d.Apply(context.Background(), tunable.CPUFanSpeed, 0))

	assert.Equal(t, []write{
		{path: path, data: "127\n"},
		{path: path, data: "255\n"},
		{path: path, data: "0\n"},
	}, r.writer.writes)
	assert.Empty(t, r.spawner.started)
}

func TestApplyBacklightScaling(t *testing.T) {
	r := newRig(t)
	path := r.file(t, "sys/class/backlight/intel_backlight/brightness", "10")
	r.file(t, "sys/class/backlight/intel_backlight/max_brightness", "19393")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.ScreenBrightness, 40))
	assert.Equal(t, []write{{path: path, data: "7757\n", elevated: true}}, r.writer.writes)
}

func TestApplyCPUPowerLimit(t *testing.T) {
	r := newRig(t)
	path := r.file(t, "sys/class/powercap/intel-rapl:0/constraint_0_power_limit_uw", "28000000")
	r.file(t, "sys/class/powercap/intel-rapl:0/constraint_0_max_power_uw", "64000000")

	d := r.dispatcher()
	require.NoError(t, d.Apply(context.Background(), tunable.CPUPowerLimit, 35))
	assert.Equal(t, []write{{path: path, data: "35000000\n", elevated: true}}, r.writer.writes)

	err := d.Apply(context.Background(), tunable.CPUPowerLimit, 65)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	err = d.Apply(context.Background(), tunable.CPUPowerLimit, 0)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	assert.Len(t, r.writer.writes, 1)
}

func TestApplyPlatformProfile(t *testing.T) {
	r := newRig(t)
	path := r.file(t, "sys/firmware/acpi/platform_profile", "balanced")
	r.file(t, "sys/firmware/acpi/platform_profile_choices", "low-power balanced performance")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.PowerProfile, tunable.ProfilePowerSaver))
	assert.Equal(t, []write{{path: path, data: "low-power\n", elevated: true}}, r.writer.writes)
}

func TestApplyPlatformProfileMissingChoice(t *testing.T) {
	r := newRig(t)
	r.file(t, "sys/firmware/acpi/platform_profile", "balanced")
	r.file(t, "sys/firmware/acpi/platform_profile_choices", "balanced performance")

	err := r.dispatcher().Apply(context.Background(), tunable.PowerProfile, tunable.ProfilePowerSaver)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	assert.Zero(t, r.external())
}

func TestApplyVendorScript(t *testing.T) {
	r := newRig(t)
	script := r.script(t, probe.ScriptPowerMode)

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.PowerProfile, tunable.ProfilePerformance))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, "sudo -n bash "+script+" performance", r.spawner.started[0].String())
	assert.Empty(t, r.writer.writes)
}

func TestApplyGPUPowerVerbatim(t *testing.T) {
	r := newRig(t)
	script := r.script(t, probe.ScriptGPUPower)
	r.tool("lspci", "lspci -nn", "01:00.0 3D controller [0302]: NVIDIA Corporation TU117M\n")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.GPUPowerLimit, 73))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, []string{"-n", "bash", script, "73"}, r.spawner.started[0].Args)
}

func TestApplyGPUMode(t *testing.T) {
	r := newRig(t)
	script := r.script(t, probe.ScriptGPUSwitch)
	r.tool("lspci", "lspci -nn", "01:00.0 3D controller [0302]: NVIDIA Corporation TU117M\n")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.GPUMode, 3))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, "sudo -n bash "+script+" hybrid", r.spawner.started[0].String())
}

func TestApplyGPUFanNvidiaSettings(t *testing.T) {
	r := newRig(t)
	r.tool("lspci", "lspci -nn", "01:00.0 3D controller [0302]: NVIDIA Corporation TU117M\n")
	r.tool("nvidia-settings", "nvidia-settings -q [gpu:0]/GPUFanControlState", "Attribute 'GPUFanControlState': 0.\n")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.GPUFanSpeed, 65))
	require.Len(t, r.spawner.started, 1)

	cmd := r.spawner.started[0]
	assert.Equal(t, "sudo -n --preserve-env=DISPLAY nvidia-settings -a [gpu:0]/GPUFanControlState=1 -a [fan:0]/GPUTargetFanSpeed=65", cmd.String())
	assert.Equal(t, []string{"DISPLAY=:0"}, cmd.Env)
}

func TestApplyGPUFanRocm(t *testing.T) {
	r := newRig(t)
	r.tool("lspci", "lspci -nn", "03:00.0 VGA compatible controller [0300]: Advanced Micro Devices, Inc. [AMD/ATI] Navi 23\n")
	r.tool("rocm-smi", "rocm-smi --showfan", "GPU[0] : Fan Level: 90 (35%)\n")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.GPUFanSpeed, 35))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, "sudo -n rocm-smi --setfan 35%", r.spawner.started[0].String())
}

func TestCommandValue(t *testing.T) {
	brightnessctl := tunable.ControlPoint{Kind: tunable.ExternalCommand, Executable: "brightnessctl"}
	script := tunable.ControlPoint{Kind: tunable.VendorScript, Executable: "bash"}

	assert.Equal(t, "40%", commandValue(tunable.ScreenBrightness, brightnessctl, 40))
	assert.Equal(t, "40", commandValue(tunable.ScreenBrightness, script, 40))
	assert.Equal(t, "balanced", commandValue(tunable.PowerProfile, script, tunable.ProfileBalanced))
	assert.Equal(t, "hybrid", commandValue(tunable.GPUMode, script, 3))
}

func TestApplyChargeLimitCommand(t *testing.T) {
	r := newRig(t)
	r.tool("asusctl", "", "")

	require.NoError(t, r.dispatcher().Apply(context.Background(), tunable.BatteryChargeLimit, 60))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, "sudo -n asusctl --chg-limit 60", r.spawner.started[0].String())
}

func TestApplySpawnFailure(t *testing.T) {
	r := newRig(t)
	r.script(t, probe.ScriptKbdLight)
	r.spawner.err = errors.New().New(errors.ErrSpawnFailed)

	err := r.dispatcher().Apply(context.Background(), tunable.KeyboardBacklight, 30)
	assert.Equal(t, errors.ErrSpawnFailed, errors.CodeOf(err))
}

func TestApplyRefreshRateDelegatesToDisplay(t *testing.T) {
	r := newRig(t)
	r.elevated = false
	r.tool("xrandr", "xrandr --current", "eDP-1 connected primary\n   1920x1080    144.00*+  60.00\n")

	d := r.dispatcher()
	require.NoError(t, d.Apply(context.Background(), tunable.DisplayRefreshRate, 60))
	require.Len(t, r.spawner.started, 1)
	assert.Equal(t, "xrandr --output eDP-1 --mode 1920x1080 --rate 60", r.spawner.started[0].String())

	require.NoError(t, d.Apply(context.Background(), tunable.DisplayRefreshRate, 165))
	require.Len(t, r.spawner.started, 2)
	assert.Equal(t, "xrandr --output eDP-1 --rate 165", r.spawner.started[1].String())

	err := d.Apply(context.Background(), tunable.DisplayRefreshRate, 0)
	assert.Equal(t, errors.ErrOutOfRange, errors.CodeOf(err))
	assert.Len(t, r.spawner.started, 2)
}

func TestApplyRefreshRateWithoutDisplay(t *testing.T) {
	r := newRig(t)

	err := r.dispatcher().Apply(context.Background(), tunable.DisplayRefreshRate, 60)
	assert.Equal(t, errors.ErrNoSuchMode, errors.CodeOf(err))
	assert.Zero(t, r.external())
}

func TestClassifyWriteError(t *testing.T) {
	denied := &fs.PathError{Op: "open", Path: "/sys/x", Err: syscall.EACCES}
	assert.Equal(t, errors.ErrPermissionDenied, errors.CodeOf(classifyWriteError("/sys/x", denied)))

	perm := &fs.PathError{Op: "write", Path: "/sys/x", Err: syscall.EPERM}
	assert.Equal(t, errors.ErrPermissionDenied, errors.CodeOf(classifyWriteError("/sys/x", perm)))

	missing := &fs.PathError{Op: "open", Path: "/sys/x", Err: syscall.ENOENT}
	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(classifyWriteError("/sys/x", missing)))

	rejected := &fs.PathError{Op: "write", Path: "/sys/x", Err: syscall.EINVAL}
	assert.Equal(t, errors.ErrOperationFailed, errors.CodeOf(classifyWriteError("/sys/x", rejected)))
}

func TestClassifySudoError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, classifySudoError(ctx, "/sys/x", nil, nil))

	refused := classifySudoError(ctx, "/sys/x", []byte("sudo: a password is required\n"), os.ErrProcessDone)
	assert.Equal(t, errors.ErrPermissionDenied, errors.CodeOf(refused))
	assert.Contains(t, refused.Error(), "password is required")

	cancel()
	timedOut := classifySudoError(ctx, "/sys/x", nil, os.ErrProcessDone)
	assert.Equal(t, errors.ErrSpawnFailed, errors.CodeOf(timedOut))
}

func TestWriteDirect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brightness")
	require.NoError(t, os.WriteFile(path, []byte("100\n"), 0o644))

	require.NoError(t, writeDirect(path, []byte("7\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7\n", string(data))

	err = writeDirect(filepath.Join(dir, "missing"), []byte("1"))
	assert.Equal(t, errors.ErrUnavailable, errors.CodeOf(err))
	_, statErr := os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(statErr))
}
