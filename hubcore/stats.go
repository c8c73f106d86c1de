package hubcore

import (
	"fmt"
	"strings"

	"github.com/BertoldVdb/hidhub/gohid"
)

// MessageCount is the number of frames moved between one origin/destination
// pair since the last snapshot. Id 255 denotes the hub itself.
type MessageCount struct {
	OriginDeviceID      byte
	DestinationDeviceID byte
	Count               int
}

// StatsSnapshot is handed to Config.StatsFunc once per stats interval.
type StatsSnapshot struct {
	IntervalMs int64
	Iterations uint64
	Counters   []MessageCount
}

// statsState is touched only by the I/O loop. Counter pairs keep their
// first-seen order so repeated reports line up.
type statsState struct {
	enabled    bool
	counters   []MessageCount
	index      map[uint16]int
	iterations uint64
	lastTimeMs int64
}

func (s *statsState) countMessage(originDeviceID int, destinationDeviceID int) {
	if !s.enabled {
		return
	}
	key := uint16(originDeviceID)<<8 | uint16(destinationDeviceID)&0xFF
	if i, ok := s.index[key]; ok {
		s.counters[i].Count++
		return
	}
	if s.index == nil {
		s.index = make(map[uint16]int)
	}
	s.index[key] = len(s.counters)
	s.counters = append(s.counters, MessageCount{
		OriginDeviceID:      byte(originDeviceID),
		DestinationDeviceID: byte(destinationDeviceID),
		Count:               1,
	})
}

func (s *statsState) reset(nowMs int64) {
	s.counters = nil
	s.index = nil
	s.iterations = 0
	s.lastTimeMs = nowMs
}

// maybeEmitStats reports and resets the counters once per interval.
func (h *Hub) maybeEmitStats() {
	if !h.stats.enabled {
		return
	}
	h.stats.iterations++
	deltaTimeMs := h.currentTimeMs - h.stats.lastTimeMs
	if deltaTimeMs < h.config.StatsInterval.Milliseconds() {
		return
	}

	h.config.StatsFunc(StatsSnapshot{
		IntervalMs: deltaTimeMs,
		Iterations: h.stats.iterations,
		Counters:   h.stats.counters,
	})
	h.stats.reset(h.currentTimeMs)
}

func formatFrame(data []byte) string {
	var b strings.Builder
	for _, m := range data[:ReportSize] {
		fmt.Fprintf(&b, "%02X ", m)
	}
	return b.String()
}

func formatDeviceInfo(info *gohid.DeviceInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Path:         %s\n", info.Path)
	fmt.Fprintf(&b, "  Manufacturer: %s\n", info.MfrStr)
	fmt.Fprintf(&b, "  Product:      %s\n", info.ProductStr)
	fmt.Fprintf(&b, "  Serial:       %s\n", info.SerialNbr)
	fmt.Fprintf(&b, "  Release:      %x\n", info.ReleaseNbr)
	fmt.Fprintf(&b, "  Vendor ID:    0x%04x\n", info.VendorID)
	fmt.Fprintf(&b, "  Product ID:   0x%04x\n", info.ProductID)
	fmt.Fprintf(&b, "  Usage Page:   0x%04x\n", info.UsagePage)
	fmt.Fprintf(&b, "  Usage:        0x%02x", info.Usage)
	return b.String()
}
