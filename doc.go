// Package aks is the adjustment engine of a RAW photo editor.
//
// # Overview
//
// aks turns a decoded sensor image ([RawPixelData]) and an edit state
// ([Pipeline]: an [AdjustmentSet] plus an optional [CropRect]) into an RGBA
// image. The same pipeline runs on two interchangeable backends:
//
//   - [CPUBackend]: row-parallel reference implementation (always available)
//   - a GPU backend: WebGPU compute kernel, enabled by importing aks/gpu
//
// Both consume the same fixed-layout [ParamPack], so a change in the pack
// reaches both backends at once.
//
// # Quick Start
//
//	import (
//		"github.com/myyc/aks-sub001"
//		_ "github.com/myyc/aks-sub001/gpu" // optional GPU processing
//	)
//
//	sel := aks.NewSelector()
//	defer sel.Close()
//
//	adj := aks.NeutralAdjustments()
//	adj.Exposure = 0.5
//	img, err := sel.ProcessPixels(ctx, raw, adj, nil)
//
// # Pipeline
//
// Stages run in a fixed order, each clamping to [0,255]:
//
//	white balance -> exposure -> contrast -> highlights/shadows ->
//	levels -> saturation/vibrance -> quantize -> tone curves
//
// Neutral stages are skipped. Cropping selects the source pixels that
// enter the pipeline; it never resamples.
//
// # Backend selection
//
// The [Selector] probes the registered GPU backend once and caches the
// result. A failed GPU call is retried on the CPU; repeated failures
// disable the GPU until [Selector.Reset]. Setting AKS_NOGPU=1 or passing
// [WithoutGPU] forces the CPU.
//
// # Edit state
//
// [History] keeps immutable [Pipeline] snapshots with linear undo and redo.
// [Session] binds one image to a history and discards renders that were
// overtaken by a newer edit ([ErrStaleResult]).
//
// # Logging
//
// Logging is silent by default. Call [SetLogger] with any [log/slog]
// logger to enable it; the setting propagates to the GPU backend.
package aks
