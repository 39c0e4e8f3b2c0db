package aks

import (
	"context"
	"errors"
	"sync"
)

// Backend is one implementation of the processing pipeline.
//
// Process runs the pipeline described by pack over src and returns a newly
// allocated RGBA image. Implementations must produce the same output as the
// CPU backend within one level per channel.
type Backend interface {
	// Name returns the backend name (e.g., "cpu", "wgpu").
	Name() string

	// Process applies the pipeline. It must not modify src.Pix.
	Process(ctx context.Context, src RawPixelData, pack *ParamPack) (*ProcessedImage, error)
}

// GPUBackend is an optional GPU implementation of the pipeline.
//
// When registered via RegisterGPUBackend, the Selector probes it once and
// routes calls to it. A GPU failure is reported by wrapping
// ErrGPUProcessingFailed; the Selector then retries the call on the CPU.
//
// Implementations are provided by GPU packages. Users opt in via blank
// import:
//
//	import _ "github.com/myyc/aks-sub001/gpu" // enables GPU processing
type GPUBackend interface {
	Backend

	// Init sets up the device and compute pipeline. It is idempotent and
	// returns an error wrapping ErrBackendUnavailable when no usable device
	// exists.
	Init() error

	// Available reports whether Init succeeded and the device is usable.
	Available() bool

	// Close releases the device and pipeline objects.
	Close()
}

// DeviceProviderAware is an optional interface for GPU backends that can
// share a device with the host application instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	gpuMu      sync.RWMutex
	gpuBackend GPUBackend
)

// RegisterGPUBackend registers the process-wide GPU backend.
//
// Only one backend can be registered; a later call replaces and closes the
// previous one. Init is not called here: the Selector probes lazily on
// first use, so registration never touches the device.
func RegisterGPUBackend(b GPUBackend) error {
	if b == nil {
		return errors.New("aks: GPU backend must not be nil")
	}
	propagateLogger(b, Logger())

	gpuMu.Lock()
	old := gpuBackend
	gpuBackend = b
	gpuMu.Unlock()
	if old != nil && old != b {
		old.Close()
	}
	return nil
}

// RegisteredGPUBackend returns the registered GPU backend, or nil.
func RegisteredGPUBackend() GPUBackend {
	gpuMu.RLock()
	b := gpuBackend
	gpuMu.RUnlock()
	return b
}

// unregisterGPUBackend clears the registration. Used by tests.
func unregisterGPUBackend() {
	gpuMu.Lock()
	gpuBackend = nil
	gpuMu.Unlock()
}

// SetGPUDeviceProvider passes a host device provider to the registered GPU
// backend. If no backend is registered, or it cannot share devices, this is
// a no-op.
func SetGPUDeviceProvider(provider any) error {
	b := RegisteredGPUBackend()
	if b == nil {
		return nil
	}
	if dpa, ok := b.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
