// Package display reads the connected output's advertised refresh rates from
// xrandr and switches between them.
package display

import (
	"bufio"
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// MergeEpsilon is the widest gap, in Hz, between rates that collapse
	// into one bucket.
	MergeEpsilon = 0.25
	// MatchTolerance is how far a raw rate may be from a requested integer
	// rate and still select its mode.
	MatchTolerance = 0.5
)

// Mode is one integer-labeled refresh rate offered to the user.
type Mode struct {
	RefreshRateHz int
	PreciseHz     float64
	ModeName      string
}

// RawMode is a single rate exactly as xrandr advertises it.
type RawMode struct {
	Name    string
	Hz      float64
	Current bool
}

// Output is a connected output and its advertised rates in listing order.
type Output struct {
	Name  string
	Modes []RawMode
}

// Parse extracts the first connected output and its mode block from xrandr
// output. The block is the run of indented lines after the output header.
func Parse(out []byte) (Output, bool) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	var o Output
	for _, line := range lines {
		if strings.Contains(line, " connected") {
			if fields := strings.Fields(line); len(fields) > 0 {
				o.Name = fields[0]
			}
			break
		}
	}
	if o.Name == "" {
		return Output{}, false
	}

	collecting := false
	for _, line := range lines {
		if !collecting {
			collecting = strings.HasPrefix(line, o.Name+" ")
			continue
		}
		if strings.TrimSpace(line) == "" || !(strings.HasPrefix(line, "   ") || strings.HasPrefix(line, "\t")) {
			break
		}

		parts := strings.Fields(line)
		for _, token := range parts[1:] {
			hz, err := strconv.ParseFloat(strings.TrimRight(token, "*+"), 64)
			if err != nil {
				continue
			}
			o.Modes = append(o.Modes, RawMode{
				Name:    parts[0],
				Hz:      hz,
				Current: strings.Contains(token, "*"),
			})
		}
	}

	return o, true
}

// Current returns the active raw mode, marked with '*' by xrandr.
func (o Output) Current() (RawMode, bool) {
	for _, m := range o.Modes {
		if m.Current {
			return m, true
		}
	}

	return RawMode{}, false
}

// Match returns the first raw mode, in listing order, within MatchTolerance
// of hz.
func (o Output) Match(hz int) (RawMode, bool) {
	for _, m := range o.Modes {
		if math.Abs(m.Hz-float64(hz)) < MatchTolerance {
			return m, true
		}
	}

	return RawMode{}, false
}

type bucket struct {
	hz     float64
	lo, hi float64
}

// Bucket merges near-duplicate rates and labels each bucket with its rounded
// rate. The result is sorted ascending with unique labels. Each bucket's
// ModeName is the first listed mode advertising one of its rates.
func Bucket(raw []RawMode) []Mode {
	if len(raw) == 0 {
		return nil
	}

	rates := make([]float64, 0, len(raw))
	seen := make(map[float64]bool)
	for _, m := range raw {
		if !seen[m.Hz] {
			seen[m.Hz] = true
			rates = append(rates, m.Hz)
		}
	}
	sort.Float64s(rates)

	var merged []bucket
	for _, r := range rates {
		if n := len(merged); n > 0 && math.Abs(r-merged[n-1].hz) <= MergeEpsilon {
			merged[n-1].hz = (merged[n-1].hz + r) / 2
			merged[n-1].hi = r
			continue
		}
		merged = append(merged, bucket{hz: r, lo: r, hi: r})
	}

	modes := make([]Mode, 0, len(merged))
	labels := make(map[int]bool)
	for _, b := range merged {
		label := int(math.RoundToEven(b.hz))
		if labels[label] {
			continue
		}
		labels[label] = true

		modes = append(modes, Mode{
			RefreshRateHz: label,
			PreciseHz:     b.hz,
			ModeName:      firstModeIn(raw, b.lo, b.hi),
		})
	}

	return modes
}

func firstModeIn(raw []RawMode, lo, hi float64) string {
	for _, m := range raw {
		if m.Hz >= lo && m.Hz <= hi {
			return m.Name
		}
	}

	return ""
}

// Lowest and Highest return the extreme labels of modes.
func Lowest(modes []Mode) (int, bool) {
	if len(modes) == 0 {
		return 0, false
	}
	return modes[0].RefreshRateHz, true
}

func Highest(modes []Mode) (int, bool) {
	if len(modes) == 0 {
		return 0, false
	}
	return modes[len(modes)-1].RefreshRateHz, true
}
