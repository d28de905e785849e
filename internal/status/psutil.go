package status

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// Sensor keys of CPU package temperatures, in order of preference.
var cpuSensorKeys = []string{
	"coretemp_package_id_0",
	"k10temp_tctl",
	"k10temp_tdie",
	"zenpower_tdie",
	"acpitz",
}

type psutilCPU struct {
	window time.Duration
}

func (p psutilCPU) Usage(ctx context.Context) (float64, error) {
	errFactory := errors.New()

	percentages, err := cpu.PercentWithContext(ctx, p.window, false)
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrProbeFailed, err)
	}
	if len(percentages) == 0 {
		return 0, errFactory.WithMessage(errors.ErrProbeFailed, "no CPU usage samples")
	}

	return percentages[0], nil
}

// Frequency returns the mean current clock across logical CPUs.
func (psutilCPU) Frequency(ctx context.Context) (float64, error) {
	errFactory := errors.New()

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrProbeFailed, err)
	}
	if len(infos) == 0 {
		return 0, errFactory.WithMessage(errors.ErrProbeFailed, "no CPU info")
	}

	var sum float64
	for _, info := range infos {
		sum += info.Mhz
	}

	return sum / float64(len(infos)), nil
}

type psutilSensors struct{}

// CPUTemperature picks the package sensor from hwmon. gopsutil returns
// partial results alongside warnings, so readings are used whenever present.
func (psutilSensors) CPUTemperature(ctx context.Context) (float64, error) {
	errFactory := errors.New()

	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err == nil {
			return 0, errFactory.WithMessage(errors.ErrProbeFailed, "no temperature sensors")
		}
		return 0, errFactory.Wrap(errors.ErrProbeFailed, err)
	}

	readings := make(map[string]float64, len(temps))
	for _, t := range temps {
		readings[strings.ToLower(t.SensorKey)] = t.Temperature
	}

	return pickCPUTemperature(readings)
}

func pickCPUTemperature(readings map[string]float64) (float64, error) {
	for _, key := range cpuSensorKeys {
		if v, ok := readings[key]; ok && v > 0 {
			return v, nil
		}
	}

	return 0, errors.New().WithMessage(errors.ErrProbeFailed, "no CPU package sensor")
}
