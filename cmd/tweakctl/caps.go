package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"codeberg.org/mutker/tweakctl/internal/capability"
	"codeberg.org/mutker/tweakctl/internal/tunable"
	"github.com/spf13/cobra"
)

var capsCmd = &cobra.Command{
	Use:     "caps",
	Aliases: []string{"capabilities"},
	Short:   "List tunables and the control path each would use",
	Args:    cobra.NoArgs,
	RunE:    runCaps,
}

func init() {
	capsCmd.Flags().BoolP("json", "j", false, "output JSON format")
	capsCmd.Flags().Bool("no-elevate", false, "report what is usable without sudo")
	rootCmd.AddCommand(capsCmd)
}

type capabilityView struct {
	Tunable        string          `json:"tunable"`
	Available      bool            `json:"available"`
	Kind           string          `json:"kind,omitempty"`
	Control        string          `json:"control,omitempty"`
	Current        *int            `json:"current,omitempty"`
	Bounds         *tunable.Bounds `json:"bounds,omitempty"`
	NeedsElevation bool            `json:"needs_elevation,omitempty"`
}

func newCapabilityView(c capability.Capability) capabilityView {
	v := capabilityView{
		Tunable:        c.Tunable.String(),
		Available:      c.Available,
		Current:        c.Current,
		Bounds:         c.Bounds,
		NeedsElevation: c.NeedsElevation,
	}
	if c.Active != nil {
		v.Kind = c.Active.Kind.String()
		v.Control = c.Active.Describe()
	}

	return v
}

func runCaps(cmd *cobra.Command, _ []string) error {
	noElevate, _ := cmd.Flags().GetBool("no-elevate")

	s, err := openSession(cmd, !noElevate)
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.Capabilities(cmd.Context())

	views := make([]capabilityView, 0, len(snap))
	for _, t := range tunable.All() {
		views = append(views, newCapabilityView(snap[t]))
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	printCaps(os.Stdout, snap)
	return nil
}

func printCaps(w io.Writer, snap capability.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TUNABLE\tCURRENT\tRANGE\tCONTROL")
	for _, t := range tunable.All() {
		c := snap[t]

		current := "-"
		if c.Current != nil {
			current = tunable.FormatValue(t, *c.Current)
		}

		bounds := "-"
		if c.Bounds != nil {
			bounds = fmt.Sprintf("%d..%d", c.Bounds.Min, c.Bounds.Max)
		}

		control := "unavailable"
		switch {
		case c.Active != nil:
			control = c.Active.Describe()
		case c.NeedsElevation:
			control = "requires elevation"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t, current, bounds, control)
	}
}
