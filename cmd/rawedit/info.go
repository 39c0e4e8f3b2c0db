package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/myyc/aks-sub001/codec"
)

func newInfoCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print image dimensions, layout and camera metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := codec.Info(input)
			if err != nil {
				return err
			}
			p := message.NewPrinter(language.English)
			w := cmd.OutOrStdout()
			p.Fprintf(w, "%s: %s, %d x %d (%d pixels), %d samples per pixel\n",
				input, info.Format, info.Width, info.Height, info.Width*info.Height, info.SamplesPerPixel)
			printExif(w, p, info.Exif)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input image")
	cmd.MarkFlagRequired("input") //nolint:errcheck // flag is defined above
	return cmd
}

// printExif writes one line per recorded metadata group.
func printExif(w io.Writer, p *message.Printer, e codec.Exif) {
	if e.IsZero() {
		return
	}
	if camera := strings.TrimSpace(e.Make + " " + e.Model); camera != "" {
		p.Fprintf(w, "Camera: %s\n", camera)
	}
	if lens := strings.TrimSpace(e.LensMake + " " + e.LensModel); lens != "" {
		p.Fprintf(w, "Lens: %s\n", lens)
	}
	if e.ISO > 0 || e.Aperture > 0 || e.ShutterSpeed > 0 || e.FocalLength > 0 {
		p.Fprintf(w, "Exposure: ISO %d, f/%.1f, %s s, %.0f mm", e.ISO, e.Aperture, e.Shutter(), e.FocalLength)
		if e.FocalLength35mm > 0 {
			p.Fprintf(w, " (%.0f mm equiv.)", e.FocalLength35mm)
		}
		p.Fprintf(w, "\n")
	}
	if !e.DateTime.IsZero() {
		p.Fprintf(w, "Taken: %s\n", e.DateTime.Format("2006-01-02 15:04:05"))
	}
	if e.Software != "" {
		p.Fprintf(w, "Software: %s\n", e.Software)
	}
}
