package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"codeberg.org/mutker/tweakctl/internal/status"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live CPU, GPU and battery readings",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolP("json", "j", false, "output JSON format")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st := s.Status(cmd.Context())

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printStatus(os.Stdout, st)
	return nil
}

func printStatus(w io.Writer, st status.Status) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	row := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}

	if st.PowerProfile != "" {
		row("Power profile", st.PowerProfile)
	}
	if st.CPUUsage != nil {
		row("CPU usage", fmt.Sprintf("%.1f%%", *st.CPUUsage))
	}
	if st.CPUFrequency != nil {
		row("CPU frequency", fmt.Sprintf("%.0f MHz", *st.CPUFrequency))
	}
	if st.CPUTemperature != nil {
		row("CPU temperature", fmt.Sprintf("%.0f°C", *st.CPUTemperature))
	}
	if st.GPUName != "" {
		row("GPU", st.GPUName)
	}
	if st.GPUTemperature != nil {
		row("GPU temperature", fmt.Sprintf("%d°C", *st.GPUTemperature))
	}
	if st.GPUFanSpeed != nil {
		row("GPU fan", fmt.Sprintf("%d%%", *st.GPUFanSpeed))
	}
	if st.GPUUtilization != nil {
		row("GPU utilization", fmt.Sprintf("%d%%", *st.GPUUtilization))
	}
	if st.Battery != nil {
		row("Battery", fmt.Sprintf("%d%%", *st.Battery))
	}
	if st.OnAC != nil {
		source := "battery"
		if *st.OnAC {
			source = "AC"
		}
		row("Power source", source)
	}
}
