// Package gpu reads NVIDIA GPU state through NVML. It never changes device
// settings; fan writes go through the control dispatcher.
package gpu

// Reader is the read-only view of a GPU used for capability current values
// and live status.
type Reader interface {
	Name() string
	FanSpeed() (FanSpeed, error)
	Temperature() (Temperature, error)
	Utilization() (Utilization, error)
	Close() error
}

type (
	Temperature int
	FanSpeed    int
	Utilization int
)
