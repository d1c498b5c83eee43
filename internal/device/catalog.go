package device

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/gen2brain/malgo"
)

// Descriptor identifies one audio input device.
type Descriptor struct {
	// ID is an opaque handle understood by the catalog that produced it.
	// The empty id denotes the host's default input device.
	ID string `json:"id"`

	Name    string `json:"name"`
	Default bool   `json:"default"`

	// Loopback marks a descriptor that captures system output instead of a
	// microphone. Loopback shares the playback device id space, so it is a
	// capability flag rather than a separate device class.
	Loopback bool `json:"loopback"`
}

// StreamParams is the exact capture format the pipeline requires. Opening
// fails fast if the host cannot satisfy it.
type StreamParams struct {
	SampleRate int
	Channels   int
	ChunkSize  int // frames per chunk
}

// Catalog enumerates input devices and opens capture streams on them.
type Catalog interface {
	// InputDevices queries the host audio subsystem and returns the devices
	// exposing at least one input channel. A host with no such devices
	// yields an empty slice and a nil error.
	InputDevices() ([]Descriptor, error)

	// Resolve maps a device id to a descriptor. The empty id resolves to
	// the default input device; an unknown id is an error.
	Resolve(id string) (Descriptor, error)

	// Open starts a capture stream on the device with exactly the given
	// format.
	Open(desc Descriptor, params StreamParams) (*CaptureStream, error)

	// Close releases the catalog's host audio resources.
	Close() error
}

// MalgoCatalog is the miniaudio-backed catalog implementation.
type MalgoCatalog struct {
	ctx      *malgo.AllocatedContext
	logger   *slog.Logger
	loopback bool
}

// NewMalgoCatalog initializes the host audio context. When loopback is set,
// opened streams capture system output rather than microphone input.
func NewMalgoCatalog(logger *slog.Logger, loopback bool) (*MalgoCatalog, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", slog.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &MalgoCatalog{
		ctx:      ctx,
		logger:   logger,
		loopback: loopback,
	}, nil
}

// InputDevices enumerates capture-capable devices. The query hits the host
// subsystem on every call; results are not cached.
func (c *MalgoCatalog) InputDevices() ([]Descriptor, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		descriptors = append(descriptors, Descriptor{
			ID:       encodeDeviceID(info.ID),
			Name:     info.Name(),
			Default:  info.IsDefault != 0,
			Loopback: c.loopback,
		})
	}

	return descriptors, nil
}

// Resolve looks up a device by id, re-enumerating the host subsystem so a
// stale id for an unplugged device fails here rather than at stream open.
func (c *MalgoCatalog) Resolve(id string) (Descriptor, error) {
	devices, err := c.InputDevices()
	if err != nil {
		return Descriptor{}, err
	}

	if id == "" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
		return Descriptor{}, fmt.Errorf("no input devices available")
	}

	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}

	return Descriptor{}, fmt.Errorf("unknown device id %q", id)
}

// Open starts capturing from the device. The requested format is mandatory:
// miniaudio would otherwise convert silently, so the format is pinned and
// verified against the device config after init.
func (c *MalgoCatalog) Open(desc Descriptor, params StreamParams) (*CaptureStream, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 || params.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid stream params: %+v", params)
	}

	deviceType := malgo.Capture
	if desc.Loopback {
		deviceType = malgo.Loopback
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(params.Channels)
	deviceConfig.SampleRate = uint32(params.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(params.ChunkSize)

	if desc.ID != "" {
		deviceID, err := decodeDeviceID(desc.ID)
		if err != nil {
			return nil, fmt.Errorf("bad device id %q: %w", desc.ID, err)
		}
		deviceConfig.Capture.DeviceID = deviceID.Pointer()
	}

	stream := newCaptureStream(params, c.logger)

	dev, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: stream.onData,
		Stop: stream.onStop,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open device %q: %w", desc.Name, err)
	}
	stream.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("failed to start capture on %q: %w", desc.Name, err)
	}

	c.logger.Info("Capture stream opened",
		slog.String("device", desc.Name),
		slog.Int("sample_rate", params.SampleRate),
		slog.Int("channels", params.Channels),
		slog.Int("chunk_size", params.ChunkSize),
		slog.Bool("loopback", desc.Loopback),
	)

	return stream, nil
}

// Close releases the host audio context.
func (c *MalgoCatalog) Close() error {
	if err := c.ctx.Uninit(); err != nil {
		return fmt.Errorf("failed to uninit audio context: %w", err)
	}
	c.ctx.Free()
	return nil
}

// encodeDeviceID renders a miniaudio device id as an opaque hex handle,
// trailing zero bytes stripped.
func encodeDeviceID(id malgo.DeviceID) string {
	raw := bytes.TrimRight(id[:], "\x00")
	return hex.EncodeToString(raw)
}

// decodeDeviceID reverses encodeDeviceID.
func decodeDeviceID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) > len(id) {
		return id, fmt.Errorf("id too long: %d bytes", len(raw))
	}

	copy(id[:], raw)
	return id, nil
}
