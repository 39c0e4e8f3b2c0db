package aks

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestSessionRender(t *testing.T) {
	sel := NewSelector(WithoutGPU())
	defer sel.Close()

	s, err := NewSession(solidRaw(1000, 600, 3, 100, 100, 100), sel)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Apply(func(p *Pipeline) {
		p.Adjustments.Exposure = 1
		p.Crop = &CropRect{0.35, 0, 0.65, 1}
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	img, err := s.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if img.Width != 300 || img.Height != 600 {
		t.Errorf("size = %dx%d, want 300x600", img.Width, img.Height)
	}
	if got := img.At(0, 0); got != [4]uint8{200, 200, 200, 255} {
		t.Errorf("pixel = %v, want [200 200 200 255]", got)
	}
}

func TestSessionInvalid(t *testing.T) {
	sel := NewSelector(WithoutGPU())
	defer sel.Close()

	if _, err := NewSession(NewRawPixelData(make([]byte, 3), 2, 2, 3), sel); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("NewSession() error = %v, want ErrInvalidInput", err)
	}

	s, err := NewSession(solidRaw(2, 2, 3, 0, 0, 0), sel)
	if err != nil {
		t.Fatal(err)
	}
	gen := s.Generation()
	if err := s.Apply(func(p *Pipeline) { p.Adjustments.Contrast = 500 }); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Apply() error = %v, want ErrInvalidInput", err)
	}
	if s.Generation() != gen || s.History().Len() != 1 {
		t.Error("rejected edit changed the session")
	}
}

func TestSessionUndoRedoBumpGeneration(t *testing.T) {
	sel := NewSelector(WithoutGPU())
	defer sel.Close()
	s, err := NewSession(solidRaw(2, 2, 3, 0, 0, 0), sel)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want ErrNothingToUndo", err)
	}
	if err := s.Apply(func(p *Pipeline) { p.Adjustments.Saturation = 40 }); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if err := s.Redo(); err != nil {
		t.Fatal(err)
	}
	if s.Generation() != 3 {
		t.Errorf("Generation() = %d, want 3", s.Generation())
	}
	if s.Pipeline().Adjustments.Saturation != 40 {
		t.Errorf("saturation = %v, want 40", s.Pipeline().Adjustments.Saturation)
	}
}

func TestSessionStaleResult(t *testing.T) {
	gpu := newMockGPU("mock")
	sel := NewSelector(WithGPUBackend(gpu))
	defer sel.Close()

	s, err := NewSession(solidRaw(8, 8, 3, 10, 20, 30), sel)
	if err != nil {
		t.Fatal(err)
	}

	// An edit lands while the first render is in flight.
	gpu.hook = func() {
		gpu.hook = nil
		if err := s.Apply(func(p *Pipeline) { p.Adjustments.Exposure = 1 }); err != nil {
			t.Error(err)
		}
	}
	if _, err := s.Render(context.Background()); !errors.Is(err, ErrStaleResult) {
		t.Fatalf("Render() error = %v, want ErrStaleResult", err)
	}

	img, err := s.Render(context.Background())
	if err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if got := img.At(0, 0); got != [4]uint8{20, 40, 60, 255} {
		t.Errorf("pixel = %v, want the latest edit [20 40 60 255]", got)
	}
}

func TestSessionConcurrentApply(t *testing.T) {
	sel := NewSelector(WithoutGPU())
	defer sel.Close()

	s, err := NewSession(solidRaw(2, 2, 3, 0, 0, 0), sel)
	if err != nil {
		t.Fatal(err)
	}

	const edits = 100
	var wg sync.WaitGroup
	for range edits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Apply(func(p *Pipeline) { p.Adjustments.Temperature++ }); err != nil {
				t.Errorf("Apply() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := s.Pipeline().Adjustments.Temperature; got != edits {
		t.Errorf("Temperature = %v, want %d (lost edits)", got, edits)
	}
	if s.Generation() != edits {
		t.Errorf("Generation() = %d, want %d", s.Generation(), edits)
	}
	if s.History().Len() != edits+1 {
		t.Errorf("History().Len() = %d, want %d", s.History().Len(), edits+1)
	}
}
