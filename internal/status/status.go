// Package status collects a read-only snapshot of live machine state for
// display next to the controls. Every field is optional: a missing producer
// leaves its field nil.
package status

import (
	"context"
	"time"

	"codeberg.org/mutker/tweakctl/internal/gpu"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/sysfs"
)

const usageSampleWindow = 500 * time.Millisecond

type Status struct {
	CPUUsage       *float64 `json:"cpu_usage,omitempty"`
	CPUFrequency   *float64 `json:"cpu_mhz,omitempty"`
	CPUTemperature *float64 `json:"cpu_temperature,omitempty"`
	GPUName        string   `json:"gpu_name,omitempty"`
	GPUTemperature *int     `json:"gpu_temperature,omitempty"`
	GPUFanSpeed    *int     `json:"gpu_fan_speed,omitempty"`
	GPUUtilization *int     `json:"gpu_utilization,omitempty"`
	Battery        *int     `json:"battery,omitempty"`
	OnAC           *bool    `json:"on_ac,omitempty"`
	PowerProfile   string   `json:"power_profile,omitempty"`
}

// CPUReader reports processor load and clock.
type CPUReader interface {
	Usage(ctx context.Context) (float64, error)
	Frequency(ctx context.Context) (float64, error)
}

// TemperatureReader reports the processor package temperature.
type TemperatureReader interface {
	CPUTemperature(ctx context.Context) (float64, error)
}

type Collector struct {
	cpu    CPUReader
	temps  TemperatureReader
	gpu    gpu.Reader
	prober *sysfs.Prober
	logger logger.Logger
}

type Option func(*Collector)

func WithCPUReader(r CPUReader) Option {
	return func(c *Collector) {
		c.cpu = r
	}
}

func WithTemperatureReader(r TemperatureReader) Option {
	return func(c *Collector) {
		c.temps = r
	}
}

// WithGPU adds NVML readings. A nil reader is ignored.
func WithGPU(g gpu.Reader) Option {
	return func(c *Collector) {
		c.gpu = g
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Collector) {
		c.logger = log
	}
}

func NewCollector(prober *sysfs.Prober, opts ...Option) *Collector {
	c := &Collector{
		cpu:    psutilCPU{window: usageSampleWindow},
		temps:  psutilSensors{},
		prober: prober,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Collect reads every producer once. It never fails; unreadable values are
// logged at debug and left unset.
func (c *Collector) Collect(ctx context.Context) Status {
	var s Status

	if c.cpu != nil {
		if v, err := c.cpu.Usage(ctx); err == nil {
			s.CPUUsage = &v
		} else {
			c.logger.Debug().Err(err).Msg("CPU usage unavailable")
		}

		if v, err := c.cpu.Frequency(ctx); err == nil && v > 0 {
			s.CPUFrequency = &v
		} else {
			c.logger.Debug().Err(err).Msg("CPU frequency unavailable")
		}
	}

	if c.temps != nil {
		if v, err := c.temps.CPUTemperature(ctx); err == nil {
			s.CPUTemperature = &v
		} else {
			c.logger.Debug().Err(err).Msg("CPU temperature unavailable")
		}
	}

	if c.gpu != nil {
		s.GPUName = c.gpu.Name()
		if v, err := c.gpu.Temperature(); err == nil {
			t := int(v)
			s.GPUTemperature = &t
		}
		if v, err := c.gpu.FanSpeed(); err == nil {
			f := int(v)
			s.GPUFanSpeed = &f
		}
		if v, err := c.gpu.Utilization(); err == nil {
			u := int(v)
			s.GPUUtilization = &u
		}
	}

	if c.prober != nil {
		if v, ok := c.prober.BatteryCapacity(); ok {
			s.Battery = &v
		}
		if online, known := c.prober.ACOnline(); known {
			s.OnAC = &online
		}
	}

	return s
}
