//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	aks "github.com/myyc/aks-sub001"
)

// BackendWGPU is the identifier for the GPU backend.
const BackendWGPU = "wgpu"

// Buffer usages of one dispatch.
const (
	usageParams  = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	usageInput   = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	usageOutput  = gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
	usageStaging = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
)

// Backend runs the adjustment pipeline as a wgpu/hal compute kernel.
//
// The device and compute pipeline are created by Init and reused for every
// call. Per-call buffers are allocated for each dispatch and released
// before Process returns, on success and on failure. Dispatches are
// serialized on the backend's queue.
type Backend struct {
	mu sync.Mutex

	variants      []gputypes.Backend
	allowSoftware bool

	open  func() (computeDevice, error)
	share func(device hal.Device, queue hal.Queue, name string) (computeDevice, error)

	dev   computeDevice
	ready bool
}

var (
	_ aks.GPUBackend          = (*Backend)(nil)
	_ aks.DeviceProviderAware = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithHALBackends sets the HAL backends tried by Init, in order.
// The default is Vulkan.
func WithHALBackends(variants ...gputypes.Backend) Option {
	return func(b *Backend) {
		b.variants = append([]gputypes.Backend(nil), variants...)
	}
}

// WithSoftwareAdapters allows CPU adapters such as the wgpu software
// rasterizer. They are skipped by default because the CPU backend is
// faster than interpreting the kernel.
func WithSoftwareAdapters() Option {
	return func(b *Backend) {
		b.allowSoftware = true
	}
}

// NewBackend creates a GPU backend. No device is opened until Init.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		variants: []gputypes.Backend{gputypes.BackendVulkan},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.open = func() (computeDevice, error) {
		return openHALDevice(b.variants, b.allowSoftware)
	}
	b.share = func(device hal.Device, queue hal.Queue, name string) (computeDevice, error) {
		return newSharedHALDevice(device, queue, name)
	}
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return BackendWGPU
}

// SetLogger sets the logger for the GPU backend.
// Called by aks.SetLogger to propagate logging configuration.
func (b *Backend) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Init opens a device and builds the compute pipeline. It is idempotent.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}
	if b.dev != nil {
		b.dev.destroy()
		b.dev = nil
	}

	dev, err := b.open()
	if err != nil {
		return fmt.Errorf("%w: %w", aks.ErrBackendUnavailable, err)
	}
	b.dev = dev
	b.ready = true
	slogger().Info("gpu: backend initialized", "adapter", dev.info().String())
	return nil
}

// Available reports whether the device is open and usable.
func (b *Backend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Info returns the adapter in use. The second result is false before Init.
func (b *Backend) Info() (GPUInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev == nil {
		return GPUInfo{}, false
	}
	return b.dev.info(), true
}

// Close releases the pipeline and, unless it is shared, the device.
// Init may be called again afterwards.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dev != nil {
		b.dev.destroy()
		b.dev = nil
	}
	b.ready = false
}

// SetDeviceProvider switches the backend to a device owned by the host
// application. The provider must expose hal.Device and hal.Queue, either
// through HalDevice() and HalQueue() or as the Device() and Queue() of a
// gpucontext.DeviceProvider. Software adapters are refused unless
// WithSoftwareAdapters was given.
func (b *Backend) SetDeviceProvider(provider any) error {
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return err
	}

	name := "shared device"
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		info := dp.AdapterInfo()
		if info.Type == gpucontext.AdapterTypeSoftware && !b.allowSoftware {
			return fmt.Errorf("%w: shared adapter %q is a software renderer", aks.ErrBackendUnavailable, info.Name)
		}
		if info.Name != "" {
			name = info.Name
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev != nil {
		b.dev.destroy()
		b.dev = nil
	}
	b.ready = false

	dev, err := b.share(device, queue, name)
	if err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	b.dev = dev
	b.ready = true
	slogger().Info("gpu: switched to shared GPU device", "adapter", name)
	return nil
}

func halFromProvider(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}

	var dev, queue any
	switch p := provider.(type) {
	case halProvider:
		dev, queue = p.HalDevice(), p.HalQueue()
	case gpucontext.DeviceProvider:
		dev, queue = p.Device(), p.Queue()
	default:
		return nil, nil, errors.New("gpu: provider does not expose HAL types")
	}

	device, ok := dev.(hal.Device)
	if !ok || device == nil {
		return nil, nil, errors.New("gpu: provider device is not hal.Device")
	}
	q, ok := queue.(hal.Queue)
	if !ok || q == nil {
		return nil, nil, errors.New("gpu: provider queue is not hal.Queue")
	}
	return device, q, nil
}

// Process runs the pipeline described by pack over src on the GPU.
//
// Malformed input is reported with aks.ErrInvalidInput. Every other
// failure wraps aks.ErrGPUProcessingFailed.
func (b *Backend) Process(ctx context.Context, src aks.RawPixelData, pack *aks.ParamPack) (*aks.ProcessedImage, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := pack.CheckSource(src); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	up, err := buildUploads(src, pack)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", aks.ErrGPUProcessingFailed, err)
	}
	w, h := pack.OutputSize()

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil, fmt.Errorf("%w: %w", aks.ErrGPUProcessingFailed, aks.ErrBackendUnavailable)
	}

	start := time.Now()
	words, err := b.run(ctx, up, w, h)
	if err != nil {
		if errors.Is(err, errDeviceLost) {
			b.ready = false
			slogger().Warn("gpu: device lost", "err", err)
		}
		return nil, fmt.Errorf("%w: %w", aks.ErrGPUProcessingFailed, err)
	}

	img := &aks.ProcessedImage{
		Pix:     make([]byte, w*h*4),
		Width:   w,
		Height:  h,
		Backend: BackendWGPU,
	}
	unpackPixels(words, img.Pix)
	slogger().Debug("gpu: dispatch complete", "width", w, "height", h, "elapsed", time.Since(start))
	return img, nil
}

// run uploads, dispatches and reads back one job. All buffers it creates
// are destroyed before it returns, except when the device may still be
// executing the submission.
func (b *Backend) run(ctx context.Context, up uploads, w, h int) (_ []byte, err error) {
	gx, gy := workgroups(w, h)
	if err := checkLimits(b.dev.limits(), up, gx, gy); err != nil {
		return nil, err
	}

	var created []deviceBuffer
	defer func() {
		if errors.Is(err, errWorkInFlight) {
			slogger().Warn("gpu: leaking job buffers of an unfinished submission", "buffers", len(created))
			return
		}
		for _, buf := range created {
			b.dev.destroyBuffer(buf)
		}
	}()
	alloc := func(label string, size uint64, usage gputypes.BufferUsage) (deviceBuffer, error) {
		buf, err := b.dev.createBuffer(label, size, usage)
		if err != nil {
			return nil, err
		}
		created = append(created, buf)
		return buf, nil
	}
	upload := func(label string, data []byte, usage gputypes.BufferUsage) (deviceBuffer, error) {
		buf, err := alloc(label, uint64(len(data)), usage)
		if err != nil {
			return nil, err
		}
		if err := b.dev.writeBuffer(buf, data); err != nil {
			return nil, fmt.Errorf("write %s buffer: %w", label, err)
		}
		return buf, nil
	}

	job := dispatchJob{groupsX: gx, groupsY: gy}
	if job.params, err = upload("params", up.params, usageParams); err != nil {
		return nil, err
	}
	if job.input, err = upload("input", up.input, usageInput); err != nil {
		return nil, err
	}
	for i, label := range [4]string{"lut_master", "lut_red", "lut_green", "lut_blue"} {
		if job.luts[i], err = upload(label, up.luts[i], usageInput); err != nil {
			return nil, err
		}
	}
	if job.output, err = alloc("output", up.output, usageOutput); err != nil {
		return nil, err
	}
	if job.staging, err = alloc("staging", up.output, usageStaging); err != nil {
		return nil, err
	}

	if err := b.dev.dispatch(ctx, job); err != nil {
		return nil, err
	}

	words := make([]byte, up.output)
	if err := b.dev.readBuffer(job.staging, words); err != nil {
		return nil, err
	}
	return words, nil
}

// checkLimits rejects jobs the device cannot bind or dispatch.
func checkLimits(lim deviceLimits, up uploads, gx, gy uint32) error {
	for _, s := range []struct {
		name string
		size uint64
	}{
		{"input", uint64(len(up.input))},
		{"output", up.output},
	} {
		if s.size > lim.maxBindingSize || s.size > lim.maxBufferSize {
			return fmt.Errorf("%s buffer of %d bytes exceeds device limit of %d",
				s.name, s.size, min(lim.maxBindingSize, lim.maxBufferSize))
		}
	}
	if gx > lim.maxGroupsPerDim || gy > lim.maxGroupsPerDim {
		return fmt.Errorf("dispatch %dx%d exceeds %d workgroups per dimension", gx, gy, lim.maxGroupsPerDim)
	}
	return nil
}
