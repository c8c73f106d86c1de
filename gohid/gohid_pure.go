//go:build puregohid && !linux

package gohid

import "errors"

var errPureUnsupported = errors.New("Pure GO HID is only supported on Linux")

type pureBackend struct {
}

func newBackendInternal() Backend {
	return &pureBackend{}
}

func (b *pureBackend) Init() error {
	return errPureUnsupported
}

func (b *pureBackend) Exit() error {
	return nil
}

func (b *pureBackend) Enumerate(foundHandler func(info *DeviceInfo) error) error {
	return errPureUnsupported
}

func (b *pureBackend) OpenPath(path string) (HIDDevice, error) {
	return nil, errPureUnsupported
}
