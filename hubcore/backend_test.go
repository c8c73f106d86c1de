package hubcore

import (
	"errors"
	"sync"

	"github.com/BertoldVdb/hidhub/gohid"
)

// fakeDevice implements gohid.HIDDevice in memory. Reads pop from inbound,
// writes append to written. Safe for concurrent use so tests can inspect
// state while both hub agents are running.
type fakeDevice struct {
	mu          sync.Mutex
	path        string
	inbound     [][]byte
	written     [][]byte
	gone        bool
	nonblocking bool
	closed      bool
}

func (d *fakeDevice) Read(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gone {
		return -1, errors.New("device disconnected")
	}
	if len(d.inbound) == 0 {
		return 0, nil
	}
	frame := d.inbound[0]
	d.inbound = d.inbound[1:]
	return copy(b, frame), nil
}

func (d *fakeDevice) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame := make([]byte, len(b))
	copy(frame, b)
	d.written = append(d.written, frame)
	return len(b), nil
}

func (d *fakeDevice) SetNonblocking(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nonblocking = enable
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) queueRead(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inbound = append(d.inbound, frame)
}

func (d *fakeDevice) writtenFrames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	frames := make([][]byte, len(d.written))
	copy(frames, d.written)
	return frames
}

func (d *fakeDevice) clearWritten() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.written = nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeBackend enumerates a configurable set of paths, all exposing the QMK
// usage tuple.
type fakeBackend struct {
	mu      sync.Mutex
	devices map[string]*fakeDevice
	present []string
	openErr map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		devices: make(map[string]*fakeDevice),
		openErr: make(map[string]bool),
	}
}

func (b *fakeBackend) addDevice(path string) *fakeDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev := &fakeDevice{path: path}
	b.devices[path] = dev
	b.present = append(b.present, path)
	return dev
}

func (b *fakeBackend) removeDevice(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.present {
		if p == path {
			b.present = append(b.present[:i], b.present[i+1:]...)
			break
		}
	}
}

func (b *fakeBackend) Init() error { return nil }
func (b *fakeBackend) Exit() error { return nil }

func (b *fakeBackend) Enumerate(foundHandler func(info *gohid.DeviceInfo) error) error {
	b.mu.Lock()
	present := make([]string, len(b.present))
	copy(present, b.present)
	b.mu.Unlock()

	for _, path := range present {
		err := foundHandler(&gohid.DeviceInfo{
			Path:      path,
			UsagePage: QMKUsagePage,
			Usage:     QMKUsage,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBackend) OpenPath(path string) (gohid.HIDDevice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr[path] {
		return nil, errors.New("open failed")
	}
	dev, ok := b.devices[path]
	if !ok {
		return nil, errors.New("no such device")
	}
	return dev, nil
}

// mkFrame builds a 32 byte frame starting with the given bytes, zero padded.
func mkFrame(prefix ...byte) []byte {
	frame := make([]byte, ReportSize)
	copy(frame, prefix)
	return frame
}

// statusFrame builds the expected hub status frame for one recipient.
func statusFrame(recipient byte, others ...byte) []byte {
	frame := make([]byte, ReportSize)
	frame[0] = DefaultCommandID
	frame[1] = 0xFF
	frame[2] = recipient
	for i := 3; i < ReportSize; i++ {
		frame[i] = 0xFF
	}
	copy(frame[3:], others)
	return frame
}

// wireFrame is what a device sees on the wire: report id 0 plus the frame.
func wireFrame(frame []byte) []byte {
	return append([]byte{ReportID}, frame...)
}
