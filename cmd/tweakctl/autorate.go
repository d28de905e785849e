package main

import (
	"time"

	"codeberg.org/mutker/tweakctl/internal/autorate"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"codeberg.org/mutker/tweakctl/internal/pid"
	"github.com/spf13/cobra"
)

var autorateCmd = &cobra.Command{
	Use:   "autorate",
	Short: "Lower the refresh rate on battery and restore it on AC",
	Long: `Watch the AC adapter and switch the display to its lowest refresh rate
on battery, and to --ac-rate (or the highest rate) when plugged in. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runAutorate,
}

func init() {
	rootCmd.AddCommand(autorateCmd)
}

func runAutorate(cmd *cobra.Command, _ []string) error {
	pidFile := pid.New("tweakctl-autorate.pid")
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove PID file")
		}
	}()

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	g := autorate.New(s, s,
		autorate.WithACRate(cfg.ACRate),
		autorate.WithInterval(time.Duration(cfg.Interval)*time.Second),
		autorate.WithLogger(logger.Default()),
	)

	logger.Info().Int("interval", cfg.Interval).Msg("Following AC state")
	err = g.Run(cmd.Context())
	logger.Info().Msg("Exiting...")

	return err
}
