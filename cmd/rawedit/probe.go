package main

import (
	"fmt"

	"github.com/spf13/cobra"

	aks "github.com/myyc/aks-sub001"
)

func newProbeCmd() *cobra.Command {
	var noGPU bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report which processing backend would be used",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel := aks.NewSelector(selectorOptions(noGPU)...)
			defer sel.Close()

			gpu := "unavailable"
			if sel.Probe() {
				gpu = "available"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "GPU: %s\nBackend: %s\n", gpu, sel.Select().Name())
			return nil
		},
	}
	cmd.Flags().BoolVar(&noGPU, "no-gpu", false, "Ignore the GPU")
	return cmd
}
