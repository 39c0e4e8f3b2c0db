package aks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
)

// solidRaw returns a w x h image filled with one color.
func solidRaw(w, h, samples int, c ...byte) RawPixelData {
	pix := make([]byte, w*h*samples)
	for i := 0; i < len(pix); i += samples {
		copy(pix[i:i+samples], c)
	}
	return NewRawPixelData(pix, w, h, samples)
}

// gradientRaw returns an RGB image where every pixel is distinct.
func gradientRaw(w, h int) RawPixelData {
	pix := make([]byte, w*h*3)
	for y := range h {
		for x := range w {
			i := (y*w + x) * 3
			pix[i] = byte(x)
			pix[i+1] = byte(y)
			pix[i+2] = byte(x + y)
		}
	}
	return NewRawPixelData(pix, w, h, 3)
}

// fullPack builds a pack over the whole of src.
func fullPack(adj AdjustmentSet, src RawPixelData) *ParamPack {
	return PackParams(adj, src, PixelBounds{Right: src.Width, Bottom: src.Height})
}

func processCPU(t *testing.T, src RawPixelData, adj AdjustmentSet) *ProcessedImage {
	t.Helper()
	cpu := NewCPUBackend(2)
	defer cpu.Close()
	img, err := cpu.Process(context.Background(), src, fullPack(adj, src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	return img
}

// mockGPU implements GPUBackend for testing. It renders through a private
// CPU backend so results are real images.
type mockGPU struct {
	name string

	mu          sync.Mutex
	initErr     error
	unavailable bool
	processErrs []error // consumed one per Process call; nil entries succeed
	initCalls   int
	calls       int
	closed      bool
	logger      *slog.Logger
	hook        func()

	cpu *CPUBackend
}

func newMockGPU(name string) *mockGPU {
	return &mockGPU{name: name, cpu: NewCPUBackend(1)}
}

func (m *mockGPU) Name() string { return m.name }

func (m *mockGPU) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.initErr
}

func (m *mockGPU) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr == nil && !m.unavailable
}

func (m *mockGPU) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cpu.Close()
}

func (m *mockGPU) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockGPU) Process(ctx context.Context, src RawPixelData, pack *ParamPack) (*ProcessedImage, error) {
	m.mu.Lock()
	m.calls++
	var err error
	if len(m.processErrs) > 0 {
		err = m.processErrs[0]
		m.processErrs = m.processErrs[1:]
	}
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	img, err := m.cpu.Process(ctx, src, pack)
	if err != nil {
		return nil, err
	}
	img.Backend = m.name
	return img, nil
}

func (m *mockGPU) failNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range n {
		m.processErrs = append(m.processErrs, fmt.Errorf("%w: dispatch %d", ErrGPUProcessingFailed, i))
	}
}

func (m *mockGPU) stats() (initCalls, calls int, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.calls, m.closed
}
