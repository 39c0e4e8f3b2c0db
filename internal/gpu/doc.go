//go:build !nogpu

// Package gpu implements the adjustment pipeline as a WebGPU compute
// kernel on gogpu/wgpu (Pure Go, zero CGO).
//
// This is an internal package. Users enable it with a blank import of
// github.com/myyc/aks-sub001/gpu, which registers the backend with the
// aks Selector.
//
// # Dispatch
//
// The WGSL kernel in shaders/adjust.wgsl is compiled to SPIR-V with
// gogpu/naga once per process. Each output pixel is computed by one
// invocation in 16x16 workgroups:
//
//	params (uniform) + input words + 4 LUTs -> kernel -> packed RGBA -> staging -> host
//
// Input samples are uploaded as little-endian u32 words and each LUT entry
// is widened to a u32. The output buffer holds one packed RGBA word per
// pixel and is copied to a mappable staging buffer for readback.
//
// # Device sharing
//
// Backend.SetDeviceProvider reuses a device owned by the host application
// (for example a gogpu window). Only the pipeline objects are released on
// Close in that case.
//
// # Build tags
//
// Building with -tags nogpu removes this package's implementation and the
// wgpu dependency from the binary.
package gpu
