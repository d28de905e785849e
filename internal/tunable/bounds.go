package tunable

// Bounds is an inclusive range of accepted values.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies within b.
func (b Bounds) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// StaticBounds returns the bounds that hold for t on every machine. Tunables
// whose range depends on the hardware (CPU power limit, refresh rate) report
// false and get their bounds at resolution time.
func StaticBounds(t Tunable) (Bounds, bool) {
	switch t {
	case CPUFanSpeed, GPUFanSpeed, GPUPowerLimit, KeyboardBacklight, ScreenBrightness:
		return Bounds{Min: 0, Max: 100}, true
	case BatteryChargeLimit:
		return Bounds{Min: 50, Max: 100}, true
	case PowerProfile:
		return Bounds{Min: 0, Max: len(profiles) - 1}, true
	case GPUMode:
		return Bounds{Min: 0, Max: len(gpuModes) - 1}, true
	default:
		return Bounds{}, false
	}
}
