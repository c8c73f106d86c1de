package main

import (
	"fmt"

	"github.com/BertoldVdb/hidhub/gohid"
	"github.com/BertoldVdb/hidhub/hubcore"
)

type ListHIDCmd struct {
	All bool `optional help:"List every HID interface, not only raw HID ones."`
}

func (l *ListHIDCmd) Run(c *Context) error {
	return c.backend.Enumerate(func(info *gohid.DeviceInfo) error {
		if !l.All && (info.UsagePage != hubcore.QMKUsagePage || info.Usage != hubcore.QMKUsage) {
			return nil
		}

		fmt.Printf("%s: ID %04x:%04x %s %s\n",
			info.Path, info.VendorID, info.ProductID, info.MfrStr, info.ProductStr)
		fmt.Println("Device Information:")
		fmt.Printf("\tPath         %s\n", info.Path)
		fmt.Printf("\tVendorID     %04x\n", info.VendorID)
		fmt.Printf("\tProductID    %04x\n", info.ProductID)
		fmt.Printf("\tSerialNbr    %s\n", info.SerialNbr)
		fmt.Printf("\tReleaseNbr   %x.%x\n", info.ReleaseNbr>>8, info.ReleaseNbr&0xff)
		fmt.Printf("\tMfrStr       %s\n", info.MfrStr)
		fmt.Printf("\tProductStr   %s\n", info.ProductStr)
		fmt.Printf("\tUsagePage    %#x\n", info.UsagePage)
		fmt.Printf("\tUsage        %#x\n", info.Usage)
		fmt.Println()

		return nil
	})
}
