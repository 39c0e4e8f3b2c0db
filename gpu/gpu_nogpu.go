//go:build nogpu

// Package gpu is empty when built with -tags nogpu; processing stays on
// the CPU.
package gpu

// SetDeviceProvider is a no-op without GPU support.
func SetDeviceProvider(any) error { return nil }
