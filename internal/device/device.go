// Package device opens the hal device the conformance programs run on and
// owns the submit-and-wait step every program ends its dispatch with.
package device

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/conformance"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// FenceTimeout bounds every wait for GPU completion.
const FenceTimeout = 5 * time.Second

// pollInterval is the sleep between submission-index polls.
const pollInterval = 200 * time.Microsecond

var (
	// ErrNoBackend is returned when no Vulkan backend is registered, e.g. in
	// a build with the nogpu tag.
	ErrNoBackend = fmt.Errorf("%w: vulkan backend not available", conformance.ErrUnsupported)

	// ErrNoAdapter is returned when the backend reports no adapters.
	ErrNoAdapter = fmt.Errorf("%w: no GPU adapters found", conformance.ErrUnsupported)

	// ErrNilProvider is returned by FromProvider for a nil provider.
	ErrNilProvider = errors.New("device: provider is nil")
)

// Options control device selection.
type Options struct {
	// Features are requested when the device is opened.
	Features gputypes.Features

	// Adapter selects the first adapter whose name contains this string
	// (case-insensitive). Empty selects the first discrete or integrated GPU.
	Adapter string
}

// Device is an opened hal device and its queue.
type Device struct {
	instance hal.Instance
	adapter  hal.Adapter // nil for a provided device
	device   hal.Device
	queue    hal.Queue
	name     string
	external bool // true when the device came from a provider (don't destroy on Close)
}

// Open creates an instance on the Vulkan backend, selects an adapter and
// opens a device on it.
func Open(opts Options) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		// No loadable driver: the behavior cannot be exercised here.
		return nil, fmt.Errorf("%w: create instance: %v", conformance.ErrUnsupported, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	candidates := make([]candidate, len(adapters))
	for i := range adapters {
		candidates[i] = candidate{
			name: adapters[i].Info.Name,
			gpu: adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU,
		}
	}
	idx := selectAdapter(candidates, opts.Adapter)
	if idx < 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapter matching %q", conformance.ErrUnsupported, opts.Adapter)
	}
	selected := &adapters[idx]

	openDev, err := selected.Adapter.Open(opts.Features, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	conformance.Logger().Info("device: adapter selected", "name", selected.Info.Name, "adapters", len(adapters))
	return &Device{
		instance: instance,
		adapter:  selected.Adapter,
		device:   openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
	}, nil
}

// FromProvider wraps a device created elsewhere (e.g. by a gogpu
// application). The provider must also expose HalDevice() and HalQueue()
// returning hal.Device and hal.Queue. Close does not destroy a provided
// device.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("device: provider does not expose HAL types")
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("device: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("device: provider HalQueue is not hal.Queue")
	}
	name := provider.AdapterInfo().Name
	if name == "" {
		name = "provided"
	}
	conformance.Logger().Info("device: using provided device", "name", name)
	return &Device{device: dev, queue: queue, name: name, external: true}, nil
}

// HAL returns the underlying hal device.
func (d *Device) HAL() hal.Device { return d.device }

// Queue returns the device queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// Name returns the adapter name.
func (d *Device) Name() string { return d.name }

// Close destroys the device and instance unless they were provided.
func (d *Device) Close() {
	if d == nil {
		return
	}
	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.adapter = nil
	d.instance = nil
	d.queue = nil
}

// SubmitAndWait submits one command buffer and blocks until the queue
// reports its submission complete. The command buffer is freed once the GPU
// is done with it.
func (d *Device) SubmitAndWait(cmdBuf hal.CommandBuffer) error {
	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}
	if err := waitSubmission(d.queue, idx, FenceTimeout); err != nil {
		// Still in flight: freeing it now would race the GPU.
		return err
	}
	d.device.FreeCommandBuffer(cmdBuf)
	return nil
}

// waitSubmission polls q until submission idx has completed or timeout
// elapses.
func waitSubmission(q hal.Queue, idx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for q.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for GPU: submission %d not complete after %v", idx, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// SupportsSampleCount reports whether RGBA8 color targets with n samples
// can be created. 0 stands for a single-sample target. Of the multisampled
// counts only 4, the count every WebGPU-class adapter can offer, is
// accepted, and only when the adapter reports multisampling for RGBA8. A
// provided device exposes no adapter and is assumed to support 4.
func (d *Device) SupportsSampleCount(n int) bool {
	switch n {
	case 0, 1:
		return true
	case 4:
	default:
		return false
	}
	if d == nil || d.adapter == nil {
		return true
	}
	caps := d.adapter.TextureFormatCapabilities(gputypes.TextureFormatRGBA8Unorm)
	return caps.Flags&hal.TextureFormatCapabilityMultisample != 0
}

type candidate struct {
	name string
	gpu  bool
}

// selectAdapter returns the index of the adapter to open, or -1.
func selectAdapter(cs []candidate, want string) int {
	if len(cs) == 0 {
		return -1
	}
	if want != "" {
		want = strings.ToLower(want)
		for i, c := range cs {
			if strings.Contains(strings.ToLower(c.name), want) {
				return i
			}
		}
		return -1
	}
	for i, c := range cs {
		if c.gpu {
			return i
		}
	}
	return 0
}
