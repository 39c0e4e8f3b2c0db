package aks

import "os"

// NoGPUEnv is the environment variable that disables GPU processing when
// set to "1". It is read once per Selector, at construction.
const NoGPUEnv = "AKS_NOGPU"

// DefaultMaxGPUFailures is the number of consecutive GPU failures after
// which the Selector stops routing to the GPU until Reset.
const DefaultMaxGPUFailures = 3

// SelectorOption configures a Selector during creation.
//
// Example:
//
//	// Registered GPU backend (if any), GOMAXPROCS CPU workers
//	sel := aks.NewSelector()
//
//	// CPU only, 4 workers
//	sel := aks.NewSelector(aks.WithoutGPU(), aks.WithCPUWorkers(4))
type SelectorOption func(*selectorOptions)

type selectorOptions struct {
	gpu            GPUBackend
	ownsGPU        bool
	noGPU          bool
	cpuWorkers     int
	maxGPUFailures int
}

func defaultSelectorOptions() selectorOptions {
	return selectorOptions{
		noGPU:          os.Getenv(NoGPUEnv) == "1",
		cpuWorkers:     0, // GOMAXPROCS
		maxGPUFailures: DefaultMaxGPUFailures,
	}
}

// WithGPUBackend sets the GPU backend explicitly instead of using the
// registered one. The Selector owns it and closes it on Close.
func WithGPUBackend(b GPUBackend) SelectorOption {
	return func(o *selectorOptions) {
		o.gpu = b
		o.ownsGPU = b != nil
	}
}

// WithoutGPU forces the CPU backend.
func WithoutGPU() SelectorOption {
	return func(o *selectorOptions) {
		o.noGPU = true
	}
}

// WithCPUWorkers sets the number of CPU worker goroutines.
// Zero or negative means GOMAXPROCS.
func WithCPUWorkers(n int) SelectorOption {
	return func(o *selectorOptions) {
		o.cpuWorkers = n
	}
}

// WithMaxGPUFailures sets how many consecutive GPU failures disable the GPU
// until Reset. Values below 1 are treated as 1.
func WithMaxGPUFailures(n int) SelectorOption {
	return func(o *selectorOptions) {
		o.maxGPUFailures = max(n, 1)
	}
}
