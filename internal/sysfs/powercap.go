package sysfs

import (
	"path/filepath"
	"strings"
)

const (
	microWattsPerWatt = 1_000_000
	powercapMaxDepth  = 4
)

// PowercapReading is the first powercap zone that yielded any value.
type PowercapReading struct {
	// Current and Max are in watts, nil when the zone does not expose them.
	Current *float64
	Max     *float64
	// LimitPath is the writable limit attribute, empty when Current came
	// from a power reading rather than a limit.
	LimitPath string
	Dir       string
}

// Found reports whether any value was read.
func (r PowercapReading) Found() bool {
	return r.Current != nil || r.Max != nil
}

// FindPowercapLimits walks the powercap tree top-down in lexicographic order.
// Within each directory it takes the first current/limit file and the first
// max-power file that parse as integers, converting microwatts to watts. It
// returns the first directory yielding any value and never aggregates zones.
func (p *Prober) FindPowercapLimits() PowercapReading {
	base := p.Path("sys", "class", "powercap")
	if !isDir(base) {
		p.log.Debug().Str("path", base).Msg("No powercap tree")
		return PowercapReading{}
	}

	visited := make(map[string]bool)
	reading, _ := p.walkPowercap(base, 0, visited)

	return reading
}

func (p *Prober) walkPowercap(dir string, depth int, visited map[string]bool) (PowercapReading, bool) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil || visited[resolved] {
		return PowercapReading{}, false
	}
	visited[resolved] = true

	names := sortedEntries(dir)

	if reading := p.readPowercapDir(dir, names); reading.Found() {
		p.log.Debug().Str("path", dir).Msg("Powercap zone found")
		return reading, true
	}

	if depth >= powercapMaxDepth {
		return PowercapReading{}, false
	}

	for _, name := range names {
		sub := filepath.Join(dir, name)
		// Zones under /sys/class are symlinks into /sys/devices. Only follow
		// links from the class directory; deeper links such as "subsystem"
		// and "device" point back up the tree.
		if depth > 0 && isSymlink(sub) {
			continue
		}
		if !isDir(sub) {
			continue
		}
		if reading, ok := p.walkPowercap(sub, depth+1, visited); ok {
			return reading, true
		}
	}

	return PowercapReading{}, false
}

func (p *Prober) readPowercapDir(dir string, names []string) PowercapReading {
	var reading PowercapReading

	for _, name := range names {
		path := filepath.Join(dir, name)

		if reading.Current == nil && isCurrentPowerFile(name) {
			if v, ok := p.ReadInt(path); ok {
				w := float64(v) / microWattsPerWatt
				reading.Current = &w
				if strings.HasSuffix(name, "power_limit_uw") {
					reading.LimitPath = path
				}
			}
		}

		if reading.Max == nil && strings.HasSuffix(name, "max_power_uw") {
			if v, ok := p.ReadInt(path); ok {
				w := float64(v) / microWattsPerWatt
				reading.Max = &w
			}
		}
	}

	if reading.Found() {
		reading.Dir = dir
	}

	return reading
}

func isCurrentPowerFile(name string) bool {
	return strings.HasSuffix(name, "power_limit_uw") || name == "power_uw"
}
