package tunable

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/tweakctl/internal/errors"
)

// Power profiles, ordered from least to most power hungry.
const (
	ProfilePowerSaver = iota
	ProfileBalanced
	ProfilePerformance
)

var profiles = []string{"power-saver", "balanced", "performance"}

// Names used by firmware platform_profile for each profile index, in order
// of preference.
var platformProfileNames = [][]string{
	ProfilePowerSaver:  {"low-power", "quiet", "cool"},
	ProfileBalanced:    {"balanced", "balanced-performance"},
	ProfilePerformance: {"performance"},
}

var gpuModes = []string{"auto", "nvidia", "intel", "hybrid", "off"}

// ProfileName returns the power-profiles-daemon name for a profile index.
func ProfileName(v int) string {
	if v < 0 || v >= len(profiles) {
		return ""
	}

	return profiles[v]
}

// PlatformProfileName picks the firmware name for a profile index among the
// choices the firmware advertises. It returns false when none matches.
func PlatformProfileName(v int, choices []string) (string, bool) {
	if v < 0 || v >= len(platformProfileNames) {
		return "", false
	}

	for _, want := range platformProfileNames[v] {
		for _, have := range choices {
			if have == want {
				return have, true
			}
		}
	}

	return "", false
}

// ProfileIndex maps a profile name from any source (power-profiles-daemon or
// firmware) back to its index.
func ProfileIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, p := range profiles {
		if p == name {
			return i, true
		}
	}
	for i, alts := range platformProfileNames {
		for _, alt := range alts {
			if alt == name {
				return i, true
			}
		}
	}

	return 0, false
}

// GPUModeName returns the switching mode name for an index.
func GPUModeName(v int) string {
	if v < 0 || v >= len(gpuModes) {
		return ""
	}

	return gpuModes[v]
}

// ParseValue converts user input into the numeric value used by t.
// Profile and GPU mode accept their names; everything else accepts an
// integer with an optional unit suffix.
func ParseValue(t Tunable, s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch t {
	case PowerProfile:
		if i, ok := ProfileIndex(s); ok {
			return i, nil
		}
	case GPUMode:
		for i, m := range gpuModes {
			if m == s {
				return i, nil
			}
		}
	}

	s = strings.TrimSuffix(s, strings.ToLower(t.Unit()))
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("%q for %s", s, t))
	}

	return v, nil
}

// FormatValue renders v the way a user would type it.
func FormatValue(t Tunable, v int) string {
	switch t {
	case PowerProfile:
		if name := ProfileName(v); name != "" {
			return name
		}
	case GPUMode:
		if name := GPUModeName(v); name != "" {
			return name
		}
	}

	return strconv.Itoa(v) + t.Unit()
}
