//go:build !nogpu

// Package gpu registers the wgpu compute backend with the aks Selector.
//
// Import this package to enable GPU processing. The device is opened
// lazily by the first Selector probe; if no Vulkan adapter is usable the
// Selector keeps processing on the CPU.
//
// Usage:
//
//	import _ "github.com/myyc/aks-sub001/gpu" // enable GPU processing
package gpu

import (
	aks "github.com/myyc/aks-sub001"
	gpuimpl "github.com/myyc/aks-sub001/internal/gpu"
)

func init() {
	if err := aks.RegisterGPUBackend(gpuimpl.NewBackend()); err != nil {
		aks.Logger().Warn("GPU backend not registered", "err", err)
	}
}

// SetDeviceProvider makes the registered backend use a GPU device owned by
// the host application (e.g., a gogpu window) instead of opening its own.
//
// The provider should be a gpucontext.DeviceProvider whose Device and
// Queue are HAL objects, or expose HalDevice() and HalQueue().
func SetDeviceProvider(provider any) error {
	return aks.SetGPUDeviceProvider(provider)
}
