package hubcore

import (
	"time"

	"github.com/BertoldVdb/hidhub/gohid"
)

// discoveryLoop periodically reconciles the device table with the backend's
// enumeration. Runs on its own goroutine, started by Run.
func (h *Hub) discoveryLoop() {
	defer close(h.discoveryDone)

	for {
		h.enumerateDevices()
		select {
		case <-h.discoveryStop:
			return
		case <-time.After(h.config.DiscoveryPeriod):
		}
	}
}

// stopDiscovery releases a discovery task possibly spinning in the removal
// handshake and waits for it to exit.
func (h *Hub) stopDiscovery() {
	h.newIterationFlag.Store(true)
	close(h.discoveryStop)
	<-h.discoveryDone
}

// enumerateDevices runs one reconcile pass: open interfaces that appeared,
// flag or retire interfaces that are gone.
func (h *Hub) enumerateDevices() {

	// Unmark existing open devices.
	currentNode := h.nodes.Load()
	for currentNode != nil {
		currentNode.inEnumeration = false
		currentNode = currentNode.next.Load()
	}

	// Open any newly found devices.
	err := h.backend.Enumerate(func(info *gohid.DeviceInfo) error {
		if info.UsagePage != h.config.UsagePage || info.Usage != h.config.Usage {
			return nil
		}
		if h.handleDeviceFound(info.Path) > 0 {
			h.log(LogBasic, "Opened a new raw HID device:\n%s", formatDeviceInfo(info))
		}
		return nil
	})
	if err != nil {
		h.log(LogBasic, "Enumeration failed: %v", err)
	}

	// Close devices that weren't found in the enumeration. The
	// predecessor only advances past nodes that stay linked, so a later
	// removal in the same pass still unlinks from the live chain.
	currentNode = h.nodes.Load()
	var previousNode *deviceNode
	for currentNode != nil {
		nextNode := currentNode.next.Load()
		removed := false
		if !currentNode.inEnumeration {
			if h.handleDeviceMissing(previousNode, currentNode) > 0 {
				removed = true
				h.log(LogBasic, "Closed a missing raw HID device.")
			}
		}
		if !removed {
			previousNode = currentNode
		}
		currentNode = nextNode
	}
}

// handleDeviceFound returns 1 if a new device was opened, 0 if an existing
// open device matched, -1 on open failure. Open failures are retried
// implicitly on the next enumeration.
func (h *Hub) handleDeviceFound(path string) int {
	currentNode := h.nodes.Load()
	var previousNode *deviceNode
	for currentNode != nil {
		if currentNode.path == path && !currentNode.markedForUnregistration.Load() {
			currentNode.inEnumeration = true
			return 0
		}
		previousNode = currentNode
		currentNode = currentNode.next.Load()
	}

	dev, err := h.backend.OpenPath(path)
	if err != nil {
		h.log(LogBasic, "Failed to open %s: %v", path, err)
		return -1
	}
	dev.SetNonblocking(true)
	h.nodeAppend(dev, path, previousNode)
	return 1
}

// handleDeviceMissing retires a node whose interface left the enumeration.
// The first pass only flags the node; the I/O loop unregisters it and
// acknowledges with markedForDeletion, after which a later pass unlinks and
// frees it.
func (h *Hub) handleDeviceMissing(previousNode *deviceNode, node *deviceNode) int {
	if !node.markedForDeletion.Load() {
		node.markedForUnregistration.Store(true)
		return 0
	}

	h.nodeUnlink(previousNode, node)

	// Wait for the I/O loop to start a fresh iteration, proving it holds
	// no pointer into the unlinked node. During shutdown the I/O loop has
	// already exited, so the wait ends with the stop request instead.
	h.newIterationFlag.Store(false)
	for !h.newIterationFlag.Load() && !h.stopRequested() {
		time.Sleep(h.config.SleepStep)
	}

	node.free()
	return 1
}

func (h *Hub) stopRequested() bool {
	select {
	case <-h.discoveryStop:
		return true
	default:
		return false
	}
}
