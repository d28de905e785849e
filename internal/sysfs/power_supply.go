package sysfs

import (
	"path/filepath"
	"strings"
)

var chargeThresholdFiles = []string{
	"charge_control_end_threshold",
	"charge_control_limit",
	"charge_control_end_percent",
}

// ChargeControl is a battery charge threshold attribute.
type ChargeControl struct {
	Path     string
	Writable bool
}

// ReadChargeControlPaths returns the first charge threshold attribute. Supplies
// are visited in lexicographic order and attribute names in a fixed
// preference order.
func (p *Prober) ReadChargeControlPaths() (ChargeControl, bool) {
	base := p.Path("sys", "class", "power_supply")

	for _, supply := range sortedEntries(base) {
		for _, name := range chargeThresholdFiles {
			path := filepath.Join(base, supply, name)
			if !exists(path) {
				continue
			}

			cc := ChargeControl{Path: path, Writable: p.writable(path)}
			p.log.Debug().Str("path", path).Bool("writable", cc.Writable).Msg("Charge threshold found")

			return cc, true
		}
	}

	return ChargeControl{}, false
}

// ACOnline reports whether a mains supply is online. The second result is
// false when no mains supply could be read.
func (p *Prober) ACOnline() (online bool, known bool) {
	base := p.Path("sys", "class", "power_supply")

	for _, supply := range sortedEntries(base) {
		dir := filepath.Join(base, supply)

		kind, ok := p.ReadString(filepath.Join(dir, "type"))
		if !ok || !strings.Contains(strings.ToLower(kind), "mains") {
			continue
		}

		v, ok := p.ReadString(filepath.Join(dir, "online"))
		if !ok {
			continue
		}

		return v == "1", true
	}

	return false, false
}

// BatteryCapacity returns the charge percentage of the first battery.
func (p *Prober) BatteryCapacity() (int, bool) {
	base := p.Path("sys", "class", "power_supply")

	for _, supply := range sortedEntries(base) {
		dir := filepath.Join(base, supply)

		kind, ok := p.ReadString(filepath.Join(dir, "type"))
		if !ok || kind != "Battery" {
			continue
		}

		if v, ok := p.ReadInt(filepath.Join(dir, "capacity")); ok {
			return int(v), true
		}
	}

	return 0, false
}
