package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	aks "github.com/myyc/aks-sub001"
	"github.com/myyc/aks-sub001/codec"
	"github.com/myyc/aks-sub001/preset"
)

type developFlags struct {
	input, output  string
	presetPath     string
	savePreset     string
	crop           string
	quality        int
	maxSize        int
	noGPU          bool
	keepAlpha      bool
	curvesDisabled bool
	sliders        map[string]*float64
}

// sliderFlags maps flag names to adjustment fields.
var sliderFlags = []struct {
	name  string
	usage string
	field func(*aks.AdjustmentSet) *float64
}{
	{"temperature", "White balance temperature [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Temperature }},
	{"tint", "White balance tint [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Tint }},
	{"exposure", "Exposure in stops [-5,5]", func(a *aks.AdjustmentSet) *float64 { return &a.Exposure }},
	{"contrast", "Contrast [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Contrast }},
	{"highlights", "Highlights [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Highlights }},
	{"shadows", "Shadows [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Shadows }},
	{"blacks", "Black level [0,254]", func(a *aks.AdjustmentSet) *float64 { return &a.Blacks }},
	{"whites", "White level [1,255]", func(a *aks.AdjustmentSet) *float64 { return &a.Whites }},
	{"saturation", "Saturation [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Saturation }},
	{"vibrance", "Vibrance [-100,100]", func(a *aks.AdjustmentSet) *float64 { return &a.Vibrance }},
}

func newDevelopCmd() *cobra.Command {
	f := developFlags{sliders: make(map[string]*float64)}
	cmd := &cobra.Command{
		Use:   "develop",
		Short: "Apply adjustments to an image and write the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevelop(cmd, &f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Input image (TIFF, PNG, JPEG, BMP, WebP)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output image (.jpg, .png, .tif)")
	cmd.Flags().StringVar(&f.presetPath, "preset", "", "Load adjustments from a preset file")
	cmd.Flags().StringVar(&f.savePreset, "save-preset", "", "Write the final adjustments to a preset file")
	cmd.Flags().StringVar(&f.crop, "crop", "", "Normalized crop as left,top,right,bottom")
	cmd.Flags().IntVar(&f.quality, "quality", codec.DefaultQuality, "JPEG quality [1,100]")
	cmd.Flags().IntVar(&f.maxSize, "max-size", 0, "Downscale so neither side exceeds this many pixels")
	cmd.Flags().BoolVar(&f.noGPU, "no-gpu", false, "Process on the CPU only (also "+noGPUEnv+"=1)")
	cmd.Flags().BoolVar(&f.keepAlpha, "keep-alpha", false, "Keep transparency of the input")
	cmd.Flags().BoolVar(&f.curvesDisabled, "no-curves", false, "Ignore tone curves from the preset")
	for _, s := range sliderFlags {
		f.sliders[s.name] = cmd.Flags().Float64(s.name, 0, s.usage)
	}
	cmd.MarkFlagRequired("input")  //nolint:errcheck // flag is defined above
	cmd.MarkFlagRequired("output") //nolint:errcheck // flag is defined above
	return cmd
}

func runDevelop(cmd *cobra.Command, f *developFlags) error {
	format, err := codec.FormatFromPath(f.output)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cmd, f)
	if err != nil {
		return err
	}

	raw, err := codec.ImageDecoder{KeepAlpha: f.keepAlpha}.Decode(f.input)
	if err != nil {
		return err
	}

	sel := aks.NewSelector(selectorOptions(f.noGPU)...)
	defer sel.Close()

	start := time.Now()
	img, err := sel.ProcessPixels(cmd.Context(), *raw, p.Adjustments, p.Crop)
	if err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	elapsed := time.Since(start)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, codec.Options{Format: format, Quality: f.quality, MaxDimension: f.maxSize}); err != nil {
		return err
	}
	if err := os.WriteFile(f.output, buf.Bytes(), 0o644); err != nil { //nolint:gosec // output is a user image
		return fmt.Errorf("writing output: %w", err)
	}
	if f.savePreset != "" {
		if err := preset.SaveFile(f.savePreset, p); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Developed %dx%d -> %s (%s, %s)\n",
		img.Width, img.Height, f.output, img.Backend, elapsed.Round(time.Millisecond))
	return nil
}

// buildPipeline starts from the preset (or neutral defaults) and applies
// the slider and crop flags that were set explicitly.
func buildPipeline(cmd *cobra.Command, f *developFlags) (aks.Pipeline, error) {
	p := aks.NewPipeline()
	if f.presetPath != "" {
		var err error
		if p, err = preset.LoadFile(f.presetPath); err != nil {
			return aks.Pipeline{}, err
		}
	}
	for _, s := range sliderFlags {
		if cmd.Flags().Changed(s.name) {
			*s.field(&p.Adjustments) = *f.sliders[s.name]
		}
	}
	if f.curvesDisabled {
		p.Adjustments.CurveEnabled = false
	}
	if f.crop != "" {
		c, err := parseCrop(f.crop)
		if err != nil {
			return aks.Pipeline{}, err
		}
		p.Crop = &c
	}
	if err := p.Validate(); err != nil {
		return aks.Pipeline{}, err
	}
	return p, nil
}

// parseCrop parses "left,top,right,bottom".
func parseCrop(s string) (aks.CropRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return aks.CropRect{}, fmt.Errorf("crop %q: want left,top,right,bottom", s)
	}
	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return aks.CropRect{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = f
	}
	return aks.NewCropRect(v[0], v[1], v[2], v[3])
}
