package gpu

import (
	"sync"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// GPU is an open NVML session on the first device.
type GPU struct {
	nvml     nvmlController
	device   nvml.Device
	name     string
	fanCount int
	mu       sync.RWMutex
	logger   logger.Logger
}

// Open initializes NVML and binds the first device. It fails on machines
// without the NVIDIA driver, which callers treat as "no NVML".
func Open(log logger.Logger) (*GPU, error) {
	return open(&nvmlWrapper{}, log)
}

func open(ctl nvmlController, log logger.Logger) (*GPU, error) {
	errFactory := errors.New()

	if err := ctl.Initialize(); err != nil {
		return nil, err
	}

	count, err := ctl.GetDeviceCount()
	if err != nil {
		_ = ctl.Shutdown()
		return nil, err
	}
	if count == 0 {
		_ = ctl.Shutdown()
		return nil, errFactory.New(ErrDeviceNotFound)
	}

	device, err := ctl.GetDevice(0)
	if err != nil {
		_ = ctl.Shutdown()
		return nil, err
	}

	g := &GPU{
		nvml:   ctl,
		device: device,
		logger: log,
	}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		g.name = name
		log.Debug().Str("gpu", name).Msg("Detected GPU")
	}

	if fans, ret := device.GetNumFans(); IsNVMLSuccess(ret) {
		g.fanCount = fans
	}
	log.Debug().Int("fans", g.fanCount).Msg("Detected fans")

	return g, nil
}

func (g *GPU) Name() string {
	return g.name
}

// FanSpeed returns the first fan's speed as a percentage of its maximum.
func (g *GPU) FanSpeed() (FanSpeed, error) {
	errFactory := errors.New()
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.device == nil {
		return 0, errFactory.New(ErrNotInitialized)
	}
	if g.fanCount == 0 {
		return 0, errFactory.New(ErrNoFans)
	}

	speed, ret := g.device.GetFanSpeed_v2(0)
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrGetFanSpeedFailed, newNVMLError(ret))
	}

	return FanSpeed(speed), nil
}

func (g *GPU) Temperature() (Temperature, error) {
	errFactory := errors.New()
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.device == nil {
		return 0, errFactory.New(ErrNotInitialized)
	}

	temp, ret := g.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}

	return Temperature(temp), nil
}

func (g *GPU) Utilization() (Utilization, error) {
	errFactory := errors.New()
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.device == nil {
		return 0, errFactory.New(ErrNotInitialized)
	}

	rates, ret := g.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrUtilizationFailed, newNVMLError(ret))
	}

	return Utilization(rates.Gpu), nil
}

// Close shuts NVML down. The GPU must not be used afterwards.
func (g *GPU) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.device = nil

	return g.nvml.Shutdown()
}
