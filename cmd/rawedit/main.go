// Command rawedit develops images with the aks adjustment engine.
//
// Usage:
//
//	rawedit develop -i photo.tif -o photo.jpg --exposure 0.5 --crop 0.1,0,0.9,1
//	rawedit info -i photo.tif
//	rawedit probe
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	aks "github.com/myyc/aks-sub001"
	_ "github.com/myyc/aks-sub001/gpu" // enable GPU processing
)

// noGPUEnv disables the GPU for every subcommand when set to "1".
const noGPUEnv = "RAWEDIT_NOGPU"

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "rawedit",
		Short:         "Develop images with exposure, color, tone curve and crop adjustments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			aks.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.AddCommand(newDevelopCmd(), newInfoCmd(), newProbeCmd())
	return root
}

// selectorOptions returns the selector options for the GPU flag and env.
func selectorOptions(noGPU bool) []aks.SelectorOption {
	if noGPU || os.Getenv(noGPUEnv) == "1" {
		return []aks.SelectorOption{aks.WithoutGPU()}
	}
	return nil
}

func main() {
	err := newRootCmd().Execute()
	aks.ShutdownGPU()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
