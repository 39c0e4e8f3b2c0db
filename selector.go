package aks

import (
	"context"
	"errors"
	"sync"
)

// Selector routes processing calls to the GPU backend when one is
// available and to the CPU backend otherwise.
//
// The GPU is probed once, on first use; the result is cached until Reset.
// A failed GPU call is retried on the CPU for that call only. After
// maxGPUFailures consecutive failures the GPU is skipped until Reset.
//
// Selector is safe for concurrent use. It does not hold its lock while
// processing; the GPU backend serializes its own dispatches.
type Selector struct {
	cpu  *CPUBackend
	opts selectorOptions

	mu       sync.Mutex
	probed   bool
	gpu      GPUBackend // nil when the probe failed
	failures int
	disabled bool
}

// NewSelector creates a selector. No device is touched until the first
// Probe, Select or ProcessPixels call.
func NewSelector(opts ...SelectorOption) *Selector {
	o := defaultSelectorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Selector{
		cpu:  NewCPUBackend(o.cpuWorkers),
		opts: o,
	}
}

// Probe reports whether a GPU backend is usable. The first call queries the
// device; later calls return the cached result.
func (s *Selector) Probe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probeLocked()
}

func (s *Selector) probeLocked() bool {
	if s.probed {
		return s.gpu != nil
	}
	s.probed = true
	s.gpu = nil

	candidate := s.opts.gpu
	if candidate == nil {
		candidate = RegisteredGPUBackend()
	}
	switch {
	case s.opts.noGPU:
		Logger().Debug("aks: GPU disabled by configuration")
		return false
	case candidate == nil:
		Logger().Debug("aks: no GPU backend registered", "err", ErrBackendUnavailable)
		return false
	}

	if err := candidate.Init(); err != nil {
		Logger().Debug("aks: GPU probe failed", "backend", candidate.Name(), "err", err)
		return false
	}
	if !candidate.Available() {
		Logger().Debug("aks: GPU backend not available", "backend", candidate.Name())
		return false
	}
	s.gpu = candidate
	Logger().Info("aks: GPU backend selected", "backend", candidate.Name())
	return true
}

// Select returns the backend the next call will use.
func (s *Selector) Select() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.probeLocked() && !s.disabled {
		return s.gpu
	}
	return s.cpu
}

// CPU returns the CPU backend.
func (s *Selector) CPU() *CPUBackend { return s.cpu }

// Reset forgets the probe result and the failure count. The next call
// probes the GPU again.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probed = false
	s.gpu = nil
	s.failures = 0
	s.disabled = false
}

// GPUDisabled reports whether repeated failures disabled the GPU.
func (s *Selector) GPUDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// ProcessPixels validates the inputs, resolves the crop, builds the
// parameter pack and processes src on the selected backend. A nil crop
// means the full image.
//
// Only ErrInvalidInput and context errors are returned; GPU failures fall
// back to the CPU transparently.
func (s *Selector) ProcessPixels(ctx context.Context, src RawPixelData, adj AdjustmentSet, crop *CropRect) (*ProcessedImage, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := adj.Validate(); err != nil {
		return nil, err
	}
	bounds := PixelBounds{Right: src.Width, Bottom: src.Height}
	if crop != nil {
		if err := crop.Validate(); err != nil {
			return nil, err
		}
		if !crop.IsFullImage() {
			bounds = ResolveCrop(src.Width, src.Height, *crop)
		}
	}
	Logger().Debug("aks: process", "width", src.Width, "height", src.Height,
		"samples", src.SamplesPerPixel, "bounds", bounds)

	return s.Process(ctx, src, PackParams(adj, src, bounds))
}

// Process runs a prepared parameter pack on the selected backend.
func (s *Selector) Process(ctx context.Context, src RawPixelData, pack *ParamPack) (*ProcessedImage, error) {
	b := s.Select()
	if b == Backend(s.cpu) {
		return s.cpu.Process(ctx, src, pack)
	}

	img, err := b.Process(ctx, src, pack)
	if err == nil {
		s.recordSuccess()
		return img, nil
	}
	if errors.Is(err, ErrInvalidInput) || ctx.Err() != nil {
		return nil, err
	}

	s.recordFailure(b, err)
	return s.cpu.Process(ctx, src, pack)
}

func (s *Selector) recordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func (s *Selector) recordFailure(b Backend, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	Logger().Warn("aks: GPU processing failed, falling back to CPU",
		"backend", b.Name(), "failures", s.failures, "err", err)
	if s.failures >= s.opts.maxGPUFailures && !s.disabled {
		s.disabled = true
		Logger().Warn("aks: GPU disabled after repeated failures",
			"backend", b.Name(), "failures", s.failures)
	}
}

// Close stops the CPU workers and closes the GPU backend if it was passed
// with WithGPUBackend. A registered backend is process-wide and is closed
// by ShutdownGPU.
func (s *Selector) Close() {
	s.cpu.Close()
	if s.opts.ownsGPU {
		s.opts.gpu.Close()
	}
}

// ShutdownGPU closes and unregisters the process-wide GPU backend.
func ShutdownGPU() {
	gpuMu.Lock()
	b := gpuBackend
	gpuBackend = nil
	gpuMu.Unlock()
	if b != nil {
		b.Close()
	}
}
