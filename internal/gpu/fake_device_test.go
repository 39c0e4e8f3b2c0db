//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	aks "github.com/myyc/aks-sub001"
)

// fakeBuffer is a host-memory device buffer.
type fakeBuffer struct {
	label string
	usage gputypes.BufferUsage
	data  []byte
}

func (b *fakeBuffer) size() uint64 { return uint64(len(b.data)) }

// fakeDevice implements computeDevice in host memory. Its dispatch decodes
// the uploaded buffers exactly as the kernel would and renders them with
// the CPU backend, so the whole wire format is exercised.
type fakeDevice struct {
	mu        sync.Mutex
	lim       deviceLimits
	live      map[*fakeBuffer]bool
	created   int
	dispatchN int
	destroyed bool

	failCreate  string // label whose creation fails
	dispatchErr error
	readErr     error
	hook        func() // runs inside dispatch

	active    atomic.Int32
	maxActive atomic.Int32

	cpu *aks.CPUBackend
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		lim:  limitsFrom(gputypes.DefaultLimits()),
		live: make(map[*fakeBuffer]bool),
		cpu:  aks.NewCPUBackend(1),
	}
}

func (d *fakeDevice) info() GPUInfo {
	return GPUInfo{Name: "fake", DeviceType: gputypes.DeviceTypeDiscreteGPU, Backend: gputypes.BackendVulkan}
}

func (d *fakeDevice) limits() deviceLimits { return d.lim }

func (d *fakeDevice) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (deviceBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if label == d.failCreate {
		return nil, fmt.Errorf("create %s buffer: out of memory", label)
	}
	b := &fakeBuffer{label: label, usage: usage, data: make([]byte, size)}
	d.live[b] = true
	d.created++
	return b, nil
}

func (d *fakeDevice) destroyBuffer(b deviceBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.live, b.(*fakeBuffer))
}

func (d *fakeDevice) writeBuffer(b deviceBuffer, data []byte) error {
	fb := b.(*fakeBuffer)
	if fb.usage&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("%s buffer is not a copy destination", fb.label)
	}
	if len(data) > len(fb.data) {
		return fmt.Errorf("%s buffer: write of %d bytes overflows %d", fb.label, len(data), len(fb.data))
	}
	copy(fb.data, data)
	return nil
}

func (d *fakeDevice) readBuffer(b deviceBuffer, dst []byte) error {
	if d.readErr != nil {
		return d.readErr
	}
	fb := b.(*fakeBuffer)
	if fb.usage&gputypes.BufferUsageMapRead == 0 {
		return fmt.Errorf("%s buffer is not mappable", fb.label)
	}
	copy(dst, fb.data)
	return nil
}

func (d *fakeDevice) dispatch(ctx context.Context, job dispatchJob) error {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		m := d.maxActive.Load()
		if n <= m || d.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	d.mu.Lock()
	d.dispatchN++
	hook := d.hook
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.dispatchErr != nil {
		return d.dispatchErr
	}

	var pack aks.ParamPack
	if err := pack.UnmarshalBinary(job.params.(*fakeBuffer).data); err != nil {
		return err
	}
	tables := [4]*[256]uint8{&pack.LUT.Master, &pack.LUT.Red, &pack.LUT.Green, &pack.LUT.Blue}
	for i, t := range tables {
		words := job.luts[i].(*fakeBuffer).data
		if len(words) != 256*4 {
			return fmt.Errorf("lut %d is %d bytes", i, len(words))
		}
		for j := range t {
			t[j] = uint8(binary.LittleEndian.Uint32(words[j*4:]))
		}
	}

	w, h := pack.OutputSize()
	if int(job.groupsX)*workgroupSize < w || int(job.groupsY)*workgroupSize < h {
		return fmt.Errorf("dispatch %dx%d does not cover %dx%d", job.groupsX, job.groupsY, w, h)
	}

	// Rows below the crop are never read, so the source height is taken
	// from the crop bottom.
	width := int(pack.Values[aks.ParamInputWidth])
	samples := int(pack.Values[aks.ParamInputSamples])
	rows := pack.Bounds().Bottom
	input := job.input.(*fakeBuffer).data
	src := aks.RawPixelData{
		Pix:             input[:width*samples*rows],
		Width:           width,
		Height:          rows,
		BitsPerSample:   8,
		SamplesPerPixel: samples,
		AlphaMeaningful: pack.Values[aks.ParamKeepAlpha] == 1,
	}
	img, err := d.cpu.Process(ctx, src, &pack)
	if err != nil {
		return err
	}

	out := job.output.(*fakeBuffer)
	if len(out.data) != len(img.Pix) {
		return fmt.Errorf("output buffer is %d bytes, want %d", len(out.data), len(img.Pix))
	}
	for i := 0; i < len(img.Pix); i += 4 {
		v := uint32(img.Pix[i]) | uint32(img.Pix[i+1])<<8 | uint32(img.Pix[i+2])<<16 | uint32(img.Pix[i+3])<<24
		binary.LittleEndian.PutUint32(out.data[i:], v)
	}
	copy(job.staging.(*fakeBuffer).data, out.data)
	return nil
}

func (d *fakeDevice) destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
}

func (d *fakeDevice) liveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

var errFakeDispatch = errors.New("fake dispatch failure")
