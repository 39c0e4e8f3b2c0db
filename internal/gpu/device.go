//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Timing of a single dispatch.
const (
	dispatchTimeout = 5 * time.Second
	pollInterval    = 200 * time.Microsecond
)

var (
	// errDeviceLost marks failures after which the device must be reopened.
	errDeviceLost = errors.New("device lost")

	// errWorkInFlight marks a dispatch whose submission may still be
	// executing. Its buffers must not be destroyed.
	errWorkInFlight = errors.New("submission still in flight")
)

// deviceBuffer is one device allocation.
type deviceBuffer interface {
	size() uint64
}

// dispatchJob names the buffers of one kernel run.
type dispatchJob struct {
	params  deviceBuffer
	input   deviceBuffer
	luts    [4]deviceBuffer
	output  deviceBuffer
	staging deviceBuffer

	groupsX, groupsY uint32
}

// deviceLimits are the limits checked before allocating.
type deviceLimits struct {
	maxBindingSize  uint64
	maxGroupsPerDim uint32
	maxBufferSize   uint64
}

// computeDevice is the narrow device surface the backend needs. The
// production implementation wraps wgpu/hal; tests substitute a fake.
//
// Pipeline objects are created when the device is opened and live until
// destroy. Everything passed to dispatch is transient and owned by the
// caller.
type computeDevice interface {
	info() GPUInfo
	limits() deviceLimits

	createBuffer(label string, size uint64, usage gputypes.BufferUsage) (deviceBuffer, error)
	destroyBuffer(b deviceBuffer)
	writeBuffer(b deviceBuffer, data []byte) error
	readBuffer(b deviceBuffer, dst []byte) error

	// dispatch encodes one compute pass plus the output-to-staging copy,
	// submits it and waits for completion.
	dispatch(ctx context.Context, job dispatchJob) error

	destroy()
}

// GPUInfo describes the adapter in use.
type GPUInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
	Backend    gputypes.Backend
	Shared     bool
}

func (i GPUInfo) String() string {
	if i.Shared {
		return fmt.Sprintf("%s (%s, shared)", i.Name, i.DeviceType)
	}
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.DeviceType, i.Backend)
}

// halBuffer wraps a hal.Buffer with its size.
type halBuffer struct {
	buf hal.Buffer
	n   uint64
}

func (b *halBuffer) size() uint64 { return b.n }

// halDevice implements computeDevice on wgpu/hal.
type halDevice struct {
	instance hal.Instance // nil for a shared device
	device   hal.Device
	queue    hal.Queue
	adapter  GPUInfo
	lim      deviceLimits
	external bool
	timeout  time.Duration // zero means dispatchTimeout

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

var _ computeDevice = (*halDevice)(nil)

// openHALDevice opens the first usable adapter among the given HAL
// backends. Discrete GPUs are preferred over integrated ones. CPU adapters
// are skipped unless allowSoftware is set.
func openHALDevice(variants []gputypes.Backend, allowSoftware bool) (*halDevice, error) {
	var errs []error
	for _, v := range variants {
		d, err := openHALVariant(v, allowSoftware)
		if err == nil {
			return d, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", v, err))
	}
	if len(errs) == 0 {
		return nil, errors.New("no HAL backends configured")
	}
	return nil, errors.Join(errs...)
}

func openHALVariant(variant gputypes.Backend, allowSoftware bool) (*halDevice, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, errors.New("backend not registered")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	selected := selectAdapter(instance.EnumerateAdapters(nil), allowSoftware)
	if selected == nil {
		instance.Destroy()
		return nil, errors.New("no usable GPU adapters found")
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d := &halDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		adapter: GPUInfo{
			Name:       selected.Info.Name,
			DeviceType: selected.Info.DeviceType,
			Backend:    variant,
		},
		lim: limitsFrom(limits),
	}
	if err := d.createPipeline(); err != nil {
		d.destroy()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return d, nil
}

// selectAdapter picks a discrete GPU, then an integrated one, then any
// other non-CPU adapter.
func selectAdapter(adapters []hal.ExposedAdapter, allowSoftware bool) *hal.ExposedAdapter {
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			return 0
		case gputypes.DeviceTypeIntegratedGPU:
			return 1
		case gputypes.DeviceTypeVirtualGPU, gputypes.DeviceTypeOther:
			return 2
		default:
			return 3
		}
	}

	var best *hal.ExposedAdapter
	for i := range adapters {
		a := &adapters[i]
		if a.Info.DeviceType == gputypes.DeviceTypeCPU && !allowSoftware {
			continue
		}
		if best == nil || rank(a.Info.DeviceType) < rank(best.Info.DeviceType) {
			best = a
		}
	}
	return best
}

// newSharedHALDevice builds the pipeline on a device owned by the host
// application. destroy releases only the pipeline objects.
func newSharedHALDevice(device hal.Device, queue hal.Queue, name string) (*halDevice, error) {
	d := &halDevice{
		device:   device,
		queue:    queue,
		external: true,
		adapter:  GPUInfo{Name: name, Shared: true},
		lim:      limitsFrom(gputypes.DefaultLimits()),
	}
	if err := d.createPipeline(); err != nil {
		d.destroy()
		return nil, fmt.Errorf("create pipeline on shared device: %w", err)
	}
	return d, nil
}

func limitsFrom(l gputypes.Limits) deviceLimits {
	return deviceLimits{
		maxBindingSize:  l.MaxStorageBufferBindingSize,
		maxGroupsPerDim: l.MaxComputeWorkgroupsPerDimension,
		maxBufferSize:   l.MaxBufferSize,
	}
}

func (d *halDevice) info() GPUInfo        { return d.adapter }
func (d *halDevice) limits() deviceLimits { return d.lim }

func (d *halDevice) createPipeline() error {
	spirv, err := compileKernel()
	if err != nil {
		return err
	}
	d.shader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "adjust",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, bindingCount)
	for i := range entries {
		typ := gputypes.BufferBindingTypeReadOnlyStorage
		switch i {
		case bindingParams:
			typ = gputypes.BufferBindingTypeUniform
		case bindingOutput:
			typ = gputypes.BufferBindingTypeStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i), //nolint:gosec // binding index is small
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	d.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "adjust_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "adjust_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	d.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "adjust_pipeline", Layout: d.pipeLayout,
		Compute: hal.ComputeState{Module: d.shader, EntryPoint: kernelEntry},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	return nil
}

func (d *halDevice) destroyPipeline() {
	if d.device == nil {
		return
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}

func (d *halDevice) destroy() {
	d.destroyPipeline()
	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}

func (d *halDevice) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (deviceBuffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	return &halBuffer{buf: buf, n: size}, nil
}

func (d *halDevice) destroyBuffer(b deviceBuffer) {
	if hb, ok := b.(*halBuffer); ok && hb.buf != nil {
		d.device.DestroyBuffer(hb.buf)
		hb.buf = nil
	}
}

func (d *halDevice) writeBuffer(b deviceBuffer, data []byte) error {
	return d.queue.WriteBuffer(b.(*halBuffer).buf, 0, data)
}

func (d *halDevice) readBuffer(b deviceBuffer, dst []byte) error {
	hb := b.(*halBuffer)
	n := min(uint64(len(dst)), hb.n)
	m, err := d.device.MapBuffer(hb.buf, 0, n)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(m.Ptr), n)) //nolint:gosec // mapping covers n bytes
	if err := d.device.UnmapBuffer(hb.buf); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}
	return nil
}

func binding(n uint32, b deviceBuffer) gputypes.BindGroupEntry {
	hb := b.(*halBuffer)
	return gputypes.BindGroupEntry{
		Binding:  n,
		Resource: gputypes.BufferBinding{Buffer: hb.buf.NativeHandle(), Offset: 0, Size: hb.n},
	}
}

func (d *halDevice) dispatch(ctx context.Context, job dispatchJob) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "adjust_bind", Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			binding(bindingParams, job.params),
			binding(bindingInput, job.input),
			binding(bindingLUTMaster, job.luts[0]),
			binding(bindingLUTRed, job.luts[1]),
			binding(bindingLUTGreen, job.luts[2]),
			binding(bindingLUTBlue, job.luts[3]),
			binding(bindingOutput, job.output),
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "adjust_encoder"})
	if err != nil {
		d.device.DestroyBindGroup(bg)
		return fmt.Errorf("create command encoder: %w", err)
	}

	var cmdBuf hal.CommandBuffer
	defer func() {
		// Work still running on the device keeps its resources.
		if errors.Is(err, errWorkInFlight) {
			return
		}
		if cmdBuf != nil {
			d.device.FreeCommandBuffer(cmdBuf)
		}
		d.device.DestroyBindGroup(bg)
	}()

	if cmdBuf, err = d.encode(encoder, bg, job); err != nil {
		return err
	}

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.waitSubmission(idx); err != nil {
		if werr := d.device.WaitIdle(); werr != nil {
			return fmt.Errorf("%w: %w (wait idle: %w)", errWorkInFlight, err, werr)
		}
		return err
	}
	return nil
}

// encode records the compute pass and the output-to-staging copy. On
// failure the encoder is discarded, which releases its command pool.
func (d *halDevice) encode(encoder hal.CommandEncoder, bg hal.BindGroup, job dispatchJob) (hal.CommandBuffer, error) {
	if err := encoder.BeginEncoding("adjust"); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "adjust_pass"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(job.groupsX, job.groupsY, 1)
	pass.End()

	encoder.CopyBufferToBuffer(job.output.(*halBuffer).buf, job.staging.(*halBuffer).buf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: job.output.size()},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmdBuf, nil
}

// waitSubmission polls the queue until submission idx completes.
func (d *halDevice) waitSubmission(idx uint64) error {
	timeout := d.timeout
	if timeout == 0 {
		timeout = dispatchTimeout
	}
	deadline := time.Now().Add(timeout)
	for d.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d not complete after %v", errDeviceLost, idx, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}
