package aks

import (
	"context"
	"sync/atomic"

	"github.com/myyc/aks-sub001/internal/parallel"
)

// BackendCPU is the name of the CPU backend.
const BackendCPU = "cpu"

// CPUBackend is the reference implementation of the processing pipeline.
//
// Output rows are split into bands that run on a worker pool. The backend
// holds no mutable state beyond the pool, so independent calls may run
// concurrently.
type CPUBackend struct {
	pool     *parallel.WorkerPool
	bandRows int
}

var _ Backend = (*CPUBackend)(nil)

// NewCPUBackend creates a CPU backend with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewCPUBackend(workers int) *CPUBackend {
	return &CPUBackend{
		pool:     parallel.NewWorkerPool(workers),
		bandRows: parallel.BandRows,
	}
}

// Name returns "cpu".
func (c *CPUBackend) Name() string { return BackendCPU }

// Close stops the worker pool. Process still works after Close but runs
// on the calling goroutine.
func (c *CPUBackend) Close() { c.pool.Close() }

// Process runs the pipeline on src with the given parameter pack.
// It fails only with ErrInvalidInput for malformed input, or with the
// context error if ctx is done before a band starts.
func (c *CPUBackend) Process(ctx context.Context, src RawPixelData, pack *ParamPack) (*ProcessedImage, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := pack.CheckSource(src); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := pack.OutputSize()
	out := newProcessedImage(w, h, BackendCPU)
	k := newKernel(pack)

	var cancelled atomic.Bool
	c.pool.ForEachBand(h, c.bandRows, func(b parallel.Band) {
		if ctx.Err() != nil {
			cancelled.Store(true)
			return
		}
		c.processBand(&k, src, pack, out, b)
	})
	if cancelled.Load() {
		return nil, ctx.Err()
	}
	return out, nil
}

// processBand fills output rows [b.Y0, b.Y1).
func (c *CPUBackend) processBand(k *kernel, src RawPixelData, pack *ParamPack, out *ProcessedImage, b parallel.Band) {
	bounds := pack.Bounds()
	spp := src.SamplesPerPixel
	stride := src.Stride()
	keepAlpha := pack.Values[ParamKeepAlpha] != 0

	for y := b.Y0; y < b.Y1; y++ {
		si := (y+bounds.Top)*stride + bounds.Left*spp
		di := y * out.Width * 4
		for x := 0; x < out.Width; x++ {
			r, g, bl := k.apply(float32(src.Pix[si]), float32(src.Pix[si+1]), float32(src.Pix[si+2]))
			out.Pix[di] = r
			out.Pix[di+1] = g
			out.Pix[di+2] = bl
			if keepAlpha {
				out.Pix[di+3] = src.Pix[si+3]
			} else {
				out.Pix[di+3] = 255
			}
			si += spp
			di += 4
		}
	}
}
