package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel     = string(LogLevelWarning)
	DefaultVendorDir    = "/usr/lib/tweakctl/vendors"
	DefaultSysfsRoot    = "/"
	DefaultProbeTimeout = 3 * time.Second
	DefaultInterval     = 2
	DefaultCPUPowerMax  = 150

	// MaxProbeTimeout bounds every availability probe.
	MaxProbeTimeout = 3 * time.Second

	defaultEnvPrefix = "TWEAKCTL"
	configName       = "tweakctl"
)

type Config struct {
	LogLevel     string        `mapstructure:"log_level"`
	Debug        bool          `mapstructure:"debug"`
	Verbose      bool          `mapstructure:"verbose"`
	VendorDir    string        `mapstructure:"vendor_dir"`
	SysfsRoot    string        `mapstructure:"sysfs_root"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Display      string        `mapstructure:"display"`
	Elevate      bool          `mapstructure:"elevate"`
	Interval     int           `mapstructure:"interval"`
	ACRate       int           `mapstructure:"ac_rate"`
	CPUPowerMax  int           `mapstructure:"cpu_power_max"`
}

// RegisterFlags defines the command line flags understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("vendor-dir", DefaultVendorDir, "Directory holding vendor control scripts")
	fs.String("sysfs-root", DefaultSysfsRoot, "Root under which /sys is looked up")
	fs.Duration("probe-timeout", DefaultProbeTimeout, "Timeout for each availability probe")
	fs.String("display", "", "X display used by xrandr and nvidia-settings")
	fs.Bool("elevate", true, "Request elevated privileges at startup")
	fs.Int("interval", DefaultInterval, "Interval between AC checks in seconds")
	fs.Int("ac-rate", 0, "Refresh rate restored on AC power (0 = highest)")
	fs.Int("cpu-power-max", DefaultCPUPowerMax, "CPU power ceiling in watts when powercap reports none")
}

func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.flags != nil {
		if err := bindFlags(v, o.flags); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
		if path, err := o.flags.GetString("config"); err == nil && path != "" && o.configPath == "" {
			o.configPath = path
		}
	}

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, configName))
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	// Debug and verbose are shorthands for the log level
	if config.Debug {
		config.LogLevel = string(LogLevelDebug)
	} else if config.Verbose && config.LogLevel == DefaultLogLevel {
		config.LogLevel = string(LogLevelInfo)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if c.ProbeTimeout <= 0 || c.ProbeTimeout > MaxProbeTimeout {
		return errFactory.WithData(errors.ErrInvalidTimeout, c.ProbeTimeout.String())
	}

	if c.CPUPowerMax < 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "cpu_power_max must be at least 1")
	}

	if c.ACRate < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "ac_rate must not be negative")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("vendor_dir", DefaultVendorDir)
	v.SetDefault("sysfs_root", DefaultSysfsRoot)
	v.SetDefault("probe_timeout", DefaultProbeTimeout)
	v.SetDefault("display", os.Getenv("DISPLAY"))
	v.SetDefault("elevate", true)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("ac_rate", 0)
	v.SetDefault("cpu_power_max", DefaultCPUPowerMax)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Name == "config" {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})

	return bindErr
}
