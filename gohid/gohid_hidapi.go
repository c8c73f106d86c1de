//go:build !puregohid

package gohid

import (
	"github.com/sstallion/go-hid"
)

type hidapiBackend struct {
}

func newBackendInternal() Backend {
	return &hidapiBackend{}
}

func (b *hidapiBackend) Init() error {
	return hid.Init()
}

func (b *hidapiBackend) Exit() error {
	return hid.Exit()
}

func (b *hidapiBackend) Enumerate(foundHandler func(info *DeviceInfo) error) error {
	return hid.Enumerate(0, 0, func(info *hid.DeviceInfo) error {
		return foundHandler(&DeviceInfo{
			Path:       info.Path,
			VendorID:   info.VendorID,
			ProductID:  info.ProductID,
			SerialNbr:  info.SerialNbr,
			ReleaseNbr: info.ReleaseNbr,
			MfrStr:     info.MfrStr,
			ProductStr: info.ProductStr,
			UsagePage:  info.UsagePage,
			Usage:      info.Usage,
		})
	})
}

func (b *hidapiBackend) OpenPath(path string) (HIDDevice, error) {
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, err
	}

	return &hidapiDevice{dev: dev}, nil
}

type hidapiDevice struct {
	dev *hid.Device
}

func (d *hidapiDevice) Read(b []byte) (int, error) {
	return d.dev.Read(b)
}

func (d *hidapiDevice) Write(b []byte) (int, error) {
	return d.dev.Write(b)
}

func (d *hidapiDevice) SetNonblocking(enable bool) error {
	return d.dev.SetNonblock(enable)
}

func (d *hidapiDevice) Close() error {
	return d.dev.Close()
}
