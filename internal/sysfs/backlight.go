package sysfs

import (
	"os"
	"path/filepath"
	"strings"
)

// Backlight is a brightness attribute together with its full-scale value.
type Backlight struct {
	Path     string
	Max      int
	Writable bool
}

// BacklightPercent reads the current brightness as 0..100.
func (p *Prober) BacklightPercent(b Backlight) (int, bool) {
	raw, ok := p.ReadInt(b.Path)
	if !ok {
		return 0, false
	}

	return scalePercent(raw, int64(b.Max)), true
}

// ReadBacklightPaths returns the first display backlight, in lexicographic
// order, that exposes both brightness and a positive max_brightness.
func (p *Prober) ReadBacklightPaths() (Backlight, bool) {
	return p.firstBacklight(p.Path("sys", "class", "backlight"), func(string) bool { return true })
}

// ReadKeyboardBacklightPaths is ReadBacklightPaths for keyboard LEDs.
func (p *Prober) ReadKeyboardBacklightPaths() (Backlight, bool) {
	return p.firstBacklight(p.Path("sys", "class", "leds"), func(name string) bool {
		return strings.Contains(name, "kbd_backlight")
	})
}

// LEDName returns the device name of a keyboard backlight, as accepted by
// brightnessctl --device.
func LEDName(b Backlight) string {
	return filepath.Base(filepath.Dir(b.Path))
}

func (p *Prober) firstBacklight(base string, match func(name string) bool) (Backlight, bool) {
	for _, name := range sortedEntries(base) {
		if !match(name) {
			continue
		}

		dir := filepath.Join(base, name)
		brightness := filepath.Join(dir, "brightness")
		if !exists(brightness) {
			continue
		}

		maxBrightness, ok := p.ReadInt(filepath.Join(dir, "max_brightness"))
		if !ok || maxBrightness <= 0 {
			continue
		}

		b := Backlight{
			Path:     brightness,
			Max:      int(maxBrightness),
			Writable: p.writable(brightness),
		}
		p.log.Debug().Str("path", b.Path).Int("max", b.Max).Bool("writable", b.Writable).Msg("Backlight found")

		return b, true
	}

	return Backlight{}, false
}

// PlatformProfile is the ACPI platform profile attribute.
type PlatformProfile struct {
	Path     string
	Current  string
	Choices  []string
	Writable bool
}

// ReadPlatformProfile returns the firmware power profile, if exposed.
func (p *Prober) ReadPlatformProfile() (PlatformProfile, bool) {
	path := p.Path("sys", "firmware", "acpi", "platform_profile")

	current, ok := p.ReadString(path)
	if !ok {
		return PlatformProfile{}, false
	}

	var choices []string
	if data, err := os.ReadFile(path + "_choices"); err == nil {
		choices = strings.Fields(string(data))
	}

	return PlatformProfile{
		Path:     path,
		Current:  current,
		Choices:  choices,
		Writable: p.writable(path),
	}, true
}

func isSymlink(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}
