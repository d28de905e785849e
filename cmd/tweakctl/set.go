package main

import (
	"fmt"

	"codeberg.org/mutker/tweakctl/internal/tunable"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <tunable> <value>",
	Short: "Apply a value to a tunable",
	Long: `Apply a value to a tunable through its first usable control path.

Percentages and watts may carry their unit suffix. Power profiles accept
power-saver, balanced or performance; GPU modes accept auto, nvidia, intel,
hybrid or off.

Examples:
  tweakctl set cpu-fan-speed 60
  tweakctl set cpu-power-limit 45W
  tweakctl set power-profile power-saver`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: tunableNames(),
	RunE:      runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func tunableNames() []string {
	all := tunable.All()
	names := make([]string, 0, len(all))
	for _, t := range all {
		names = append(names, t.String())
	}

	return names
}

func runSet(cmd *cobra.Command, args []string) error {
	t, err := tunable.Parse(args[0])
	if err != nil {
		return err
	}

	v, err := tunable.ParseValue(t, args[1])
	if err != nil {
		return err
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Apply(cmd.Context(), t, v); err != nil {
		return err
	}

	fmt.Printf("%s set to %s\n", t, tunable.FormatValue(t, v))
	return nil
}
