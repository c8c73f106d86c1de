//go:build puregohid && linux

package gohid

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Pure Go backend for Linux hidraw nodes. No hidapi needed, but only the
// fields that can be recovered from sysfs are filled in on enumeration.
type hidrawBackend struct {
}

func newBackendInternal() Backend {
	return &hidrawBackend{}
}

func (b *hidrawBackend) Init() error {
	return nil
}

func (b *hidrawBackend) Exit() error {
	return nil
}

func (b *hidrawBackend) Enumerate(foundHandler func(info *DeviceInfo) error) error {
	entries, err := os.ReadDir("/sys/class/hidraw")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		sysDir := filepath.Join("/sys/class/hidraw", entry.Name(), "device")

		info := DeviceInfo{
			Path: filepath.Join("/dev", entry.Name()),
		}

		if err := hidrawReadUevent(filepath.Join(sysDir, "uevent"), &info); err != nil {
			continue
		}

		desc, err := os.ReadFile(filepath.Join(sysDir, "report_descriptor"))
		if err != nil {
			continue
		}
		info.UsagePage, info.Usage = hidrawParseUsage(desc)

		if err := foundHandler(&info); err != nil {
			return err
		}
	}

	return nil
}

func hidrawReadUevent(path string, info *DeviceInfo) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "HID_ID":
			/* bus:vendor:product, all hex */
			parts := strings.Split(value, ":")
			if len(parts) == 3 {
				if v, err := strconv.ParseUint(parts[1], 16, 32); err == nil {
					info.VendorID = uint16(v)
				}
				if p, err := strconv.ParseUint(parts[2], 16, 32); err == nil {
					info.ProductID = uint16(p)
				}
			}
		case "HID_NAME":
			info.ProductStr = value
		case "HID_UNIQ":
			info.SerialNbr = value
		}
	}
	return scanner.Err()
}

// hidrawParseUsage extracts the first top level usage page and usage from a
// HID report descriptor.
func hidrawParseUsage(desc []byte) (uint16, uint16) {
	var usagePage, usage uint16
	var haveUsagePage, haveUsage bool

	for i := 0; i < len(desc); {
		prefix := desc[i]
		i++
		if prefix == 0xFE {
			/* long item: skip */
			if i+1 >= len(desc) {
				break
			}
			i += 2 + int(desc[i])
			continue
		}

		size := int(prefix & 0x03)
		if size == 3 {
			size = 4
		}
		if i+size > len(desc) {
			break
		}

		var value uint32
		for j := 0; j < size; j++ {
			value |= uint32(desc[i+j]) << (8 * j)
		}

		switch prefix & 0xFC {
		case 0x04: /* global: usage page */
			if !haveUsagePage {
				usagePage = uint16(value)
				haveUsagePage = true
			}
		case 0x08: /* local: usage */
			if !haveUsage {
				usage = uint16(value)
				haveUsage = true
			}
		}

		if haveUsagePage && haveUsage {
			break
		}

		i += size
	}

	return usagePage, usage
}

type hidrawDevice struct {
	fd   int
	path string
}

func (b *hidrawBackend) OpenPath(path string) (HIDDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &hidrawDevice{fd: fd, path: path}, nil
}

func (d *hidrawDevice) Read(b []byte) (int, error) {
	n, err := unix.Read(d.fd, b)
	if errors.Is(err, unix.EAGAIN) {
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	return n, nil
}

func (d *hidrawDevice) Write(b []byte) (int, error) {
	return unix.Write(d.fd, b)
}

func (d *hidrawDevice) SetNonblocking(enable bool) error {
	return unix.SetNonblock(d.fd, enable)
}

func (d *hidrawDevice) Close() error {
	return unix.Close(d.fd)
}
