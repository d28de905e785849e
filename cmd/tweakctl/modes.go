package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"github.com/spf13/cobra"
)

var (
	modesCmd = &cobra.Command{
		Use:   "modes",
		Short: "List the refresh rates of the connected display",
		Args:  cobra.NoArgs,
		RunE:  runModes,
	}

	rateCmd = &cobra.Command{
		Use:   "rate <hz>",
		Short: "Switch the display refresh rate",
		Args:  cobra.ExactArgs(1),
		RunE:  runRate,
	}
)

func init() {
	rootCmd.AddCommand(modesCmd, rateCmd)
}

func runModes(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	modes := s.Modes(cmd.Context())
	if len(modes) == 0 {
		return errors.New().WithMessage(errors.ErrNoSuchMode, "no connected display reports refresh rates")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "RATE\tPRECISE\tMODE")
	for _, m := range modes {
		fmt.Fprintf(tw, "%d Hz\t%.2f\t%s\n", m.RefreshRateHz, m.PreciseHz, m.ModeName)
	}

	return nil
}

func runRate(cmd *cobra.Command, args []string) error {
	hz, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.New().WithData(errors.ErrInvalidArgument, args[0])
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SelectRate(cmd.Context(), hz); err != nil {
		return err
	}

	fmt.Printf("refresh rate set to %d Hz\n", hz)
	return nil
}
