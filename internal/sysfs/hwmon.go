package sysfs

import (
	"path/filepath"
	"regexp"
)

// PWMMax is the raw full-scale duty cycle of a hwmon PWM channel.
const PWMMax = 255

var pwmChannel = regexp.MustCompile(`^pwm[0-9]+$`)

// FindWritablePwmChannel returns the first PWM channel file the current user
// can write. hwmon devices and the channels within each are visited in
// lexicographic order and the search stops at the first hit.
func (p *Prober) FindWritablePwmChannel() (string, bool) {
	path, ok := p.findPwm(p.writable)
	if ok {
		p.log.Debug().Str("path", path).Msg("Writable PWM channel found")
	} else {
		p.log.Debug().Msg("No writable PWM channel")
	}

	return path, ok
}

// FindPwmChannel is FindWritablePwmChannel without the writability test, for
// reading the current duty cycle.
func (p *Prober) FindPwmChannel() (string, bool) {
	return p.findPwm(func(string) bool { return true })
}

func (p *Prober) findPwm(accept func(path string) bool) (string, bool) {
	base := p.Path("sys", "class", "hwmon")

	for _, dev := range sortedEntries(base) {
		dir := filepath.Join(base, dev)
		for _, name := range sortedEntries(dir) {
			if !pwmChannel.MatchString(name) {
				continue
			}

			path := filepath.Join(dir, name)
			if exists(path) && accept(path) {
				return path, true
			}
		}
	}

	return "", false
}

// ReadPWMPercent reads a PWM channel and scales it to 0..100.
func (p *Prober) ReadPWMPercent(path string) (int, bool) {
	raw, ok := p.ReadInt(path)
	if !ok {
		return 0, false
	}

	return scalePercent(raw, PWMMax), true
}

func scalePercent(raw, full int64) int {
	if full <= 0 {
		return 0
	}
	if raw < 0 {
		raw = 0
	}
	if raw > full {
		raw = full
	}

	return int((raw*100 + full/2) / full)
}
