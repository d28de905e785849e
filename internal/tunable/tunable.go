// Package tunable defines the hardware settings tweakctl can control and the
// static description of the ways each one can be written.
package tunable

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/tweakctl/internal/errors"
)

// Tunable identifies one controllable hardware setting.
type Tunable int

const (
	PowerProfile Tunable = iota
	CPUPowerLimit
	CPUFanSpeed
	GPUPowerLimit
	GPUFanSpeed
	DisplayRefreshRate
	KeyboardBacklight
	ScreenBrightness
	BatteryChargeLimit
	GPUMode
)

var names = map[Tunable]string{
	PowerProfile:       "power-profile",
	CPUPowerLimit:      "cpu-power-limit",
	CPUFanSpeed:        "cpu-fan-speed",
	GPUPowerLimit:      "gpu-power-limit",
	GPUFanSpeed:        "gpu-fan-speed",
	DisplayRefreshRate: "refresh-rate",
	KeyboardBacklight:  "keyboard-backlight",
	ScreenBrightness:   "screen-brightness",
	BatteryChargeLimit: "charge-limit",
	GPUMode:            "gpu-mode",
}

// All returns every tunable in declaration order.
func All() []Tunable {
	return []Tunable{
		PowerProfile,
		CPUPowerLimit,
		CPUFanSpeed,
		GPUPowerLimit,
		GPUFanSpeed,
		DisplayRefreshRate,
		KeyboardBacklight,
		ScreenBrightness,
		BatteryChargeLimit,
		GPUMode,
	}
}

func (t Tunable) String() string {
	if name, ok := names[t]; ok {
		return name
	}

	return "tunable(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is a known tunable.
func (t Tunable) Valid() bool {
	_, ok := names[t]
	return ok
}

// Parse resolves a tunable from its name.
func Parse(name string) (Tunable, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}

	return 0, errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("unknown tunable %q", name))
}

// Unit returns the suffix used when displaying values of t.
func (t Tunable) Unit() string {
	switch t {
	case CPUPowerLimit:
		return "W"
	case DisplayRefreshRate:
		return "Hz"
	case PowerProfile, GPUMode:
		return ""
	default:
		return "%"
	}
}
