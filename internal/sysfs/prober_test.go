package sysfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func allWritable(string) bool { return true }
func noneWritable(string) bool { return false }

func TestFindPowercapLimits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/powercap/intel-rapl:0/constraint_0_power_limit_uw", "28000000\n")
	writeFile(t, root, "sys/class/powercap/intel-rapl:0/constraint_0_max_power_uw", "64000000\n")
	writeFile(t, root, "sys/class/powercap/intel-rapl:1/constraint_0_power_limit_uw", "5000000\n")

	p := NewProber(root)
	r := p.FindPowercapLimits()

	require.NotNil(t, r.Current)
	require.NotNil(t, r.Max)
	assert.InDelta(t, 28.0, *r.Current, 1e-9)
	assert.InDelta(t, 64.0, *r.Max, 1e-9)
	assert.Equal(t, filepath.Join(root, "sys/class/powercap/intel-rapl:0/constraint_0_power_limit_uw"), r.LimitPath)
}

func TestFindPowercapLimitsSkipsUnparsable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/powercap/a/constraint_0_power_limit_uw", "garbage")
	writeFile(t, root, "sys/class/powercap/b/power_uw", "12500000")

	r := NewProber(root).FindPowercapLimits()

	require.NotNil(t, r.Current)
	assert.Nil(t, r.Max)
	assert.InDelta(t, 12.5, *r.Current, 1e-9)
	assert.Empty(t, r.LimitPath)
	assert.Equal(t, filepath.Join(root, "sys/class/powercap/b"), r.Dir)
}

func TestFindPowercapLimitsFollowsClassLinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/devices/virtual/powercap/intel-rapl/intel-rapl:0/constraint_0_power_limit_uw", "45000000")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys/class/powercap"), 0o755))
	require.NoError(t, os.Symlink(
		filepath.Join(root, "sys/devices/virtual/powercap/intel-rapl/intel-rapl:0"),
		filepath.Join(root, "sys/class/powercap/intel-rapl:0"),
	))

	r := NewProber(root).FindPowercapLimits()

	require.NotNil(t, r.Current)
	assert.InDelta(t, 45.0, *r.Current, 1e-9)
}

func TestFindPowercapLimitsEmpty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/powercap/intel-rapl/enabled", "1")

	r := NewProber(root).FindPowercapLimits()
	assert.False(t, r.Found())

	r = NewProber(t.TempDir()).FindPowercapLimits()
	assert.False(t, r.Found())
}

func TestFindWritablePwmChannel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/hwmon/hwmon0/temp1_input", "45000")
	writeFile(t, root, "sys/class/hwmon/hwmon1/pwm1_enable", "2")
	writeFile(t, root, "sys/class/hwmon/hwmon1/pwm2", "0")
	writeFile(t, root, "sys/class/hwmon/hwmon1/pwm1", "128")
	writeFile(t, root, "sys/class/hwmon/hwmon2/pwm1", "128")

	t.Run("first writable in order", func(t *testing.T) {
		path, ok := NewProber(root, WithWritableCheck(allWritable)).FindWritablePwmChannel()
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "sys/class/hwmon/hwmon1/pwm1"), path)
	})

	t.Run("skips read-only channels", func(t *testing.T) {
		check := func(path string) bool {
			return filepath.Base(filepath.Dir(path)) == "hwmon2"
		}
		path, ok := NewProber(root, WithWritableCheck(check)).FindWritablePwmChannel()
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "sys/class/hwmon/hwmon2/pwm1"), path)
	})

	t.Run("none writable", func(t *testing.T) {
		_, ok := NewProber(root, WithWritableCheck(noneWritable)).FindWritablePwmChannel()
		assert.False(t, ok)
	})
}

func TestReadPWMPercent(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "pwm1", "255")

	p := NewProber(root)
	v, ok := p.ReadPWMPercent(path)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	writeFile(t, root, "pwm1", "128")
	v, ok = p.ReadPWMPercent(path)
	require.True(t, ok)
	assert.Equal(t, 50, v)
}

func TestReadBacklightPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/backlight/acpi_video0/brightness", "5")
	writeFile(t, root, "sys/class/backlight/intel_backlight/brightness", "48000")
	writeFile(t, root, "sys/class/backlight/intel_backlight/max_brightness", "96000")
	writeFile(t, root, "sys/class/leds/input3::capslock/brightness", "0")
	writeFile(t, root, "sys/class/leds/input3::capslock/max_brightness", "1")
	writeFile(t, root, "sys/class/leds/asus::kbd_backlight/brightness", "1")
	writeFile(t, root, "sys/class/leds/asus::kbd_backlight/max_brightness", "3")

	p := NewProber(root, WithWritableCheck(noneWritable))

	screen, ok := p.ReadBacklightPaths()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "sys/class/backlight/intel_backlight/brightness"), screen.Path)
	assert.Equal(t, 96000, screen.Max)
	assert.False(t, screen.Writable)

	pct, ok := p.BacklightPercent(screen)
	require.True(t, ok)
	assert.Equal(t, 50, pct)

	kbd, ok := p.ReadKeyboardBacklightPaths()
	require.True(t, ok)
	assert.Equal(t, 3, kbd.Max)
	assert.Equal(t, "asus::kbd_backlight", LEDName(kbd))
}

func TestReadChargeControlPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/power_supply/AC/online", "1")
	writeFile(t, root, "sys/class/power_supply/BAT0/charge_control_limit", "80")
	writeFile(t, root, "sys/class/power_supply/BAT0/charge_control_end_threshold", "60")

	cc, ok := NewProber(root, WithWritableCheck(allWritable)).ReadChargeControlPaths()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "sys/class/power_supply/BAT0/charge_control_end_threshold"), cc.Path)
	assert.True(t, cc.Writable)

	_, ok = NewProber(t.TempDir()).ReadChargeControlPaths()
	assert.False(t, ok)
}

func TestReadPlatformProfile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/firmware/acpi/platform_profile", "balanced\n")
	writeFile(t, root, "sys/firmware/acpi/platform_profile_choices", "quiet balanced performance\n")

	pp, ok := NewProber(root).ReadPlatformProfile()
	require.True(t, ok)
	assert.Equal(t, "balanced", pp.Current)
	assert.Equal(t, []string{"quiet", "balanced", "performance"}, pp.Choices)
}

func TestACOnlineAndBattery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sys/class/power_supply/ADP1/type", "Mains\n")
	writeFile(t, root, "sys/class/power_supply/ADP1/online", "0\n")
	writeFile(t, root, "sys/class/power_supply/BAT0/type", "Battery\n")
	writeFile(t, root, "sys/class/power_supply/BAT0/capacity", "73\n")

	p := NewProber(root)

	online, known := p.ACOnline()
	assert.True(t, known)
	assert.False(t, online)

	capacity, ok := p.BatteryCapacity()
	require.True(t, ok)
	assert.Equal(t, 73, capacity)

	_, known = NewProber(t.TempDir()).ACOnline()
	assert.False(t, known)
}
