package main

import (
	"os"

	"codeberg.org/mutker/tweakctl/internal/config"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/privilege"
	"codeberg.org/mutker/tweakctl/internal/session"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "tweakctl",
		Short: "Inspect and control laptop hardware tunables",
		Long: `tweakctl detects which hardware tunables this machine can control
(power profile, fans, power limits, backlights, refresh rate, charge limit,
GPU mode) and applies new values through the first usable control path.

Examples:
  tweakctl caps                  # List tunables and how they are controlled
  tweakctl status --json         # Live readings as JSON
  tweakctl set power-profile balanced
  tweakctl set charge-limit 80
  tweakctl rate 60               # Switch the display refresh rate
  tweakctl autorate              # Follow AC state with the refresh rate`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(config.WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLogLevel(level)
	}
	logger.Debug().Msg("Config loaded")

	return nil
}

// openSession opens a session for cmd. Read-only commands pass elevate=false
// so they never prompt. sudo may prompt only when stdin is a terminal.
func openSession(cmd *cobra.Command, elevate bool) (*session.Session, error) {
	c := *cfg
	c.Elevate = c.Elevate && elevate

	elevator := privilege.Sudo{
		Interactive: isatty.IsTerminal(os.Stdin.Fd()) && !logger.IsService(),
	}

	return session.Open(cmd.Context(), &c,
		session.WithElevator(elevator),
		session.WithLogger(logger.Default()),
	)
}
