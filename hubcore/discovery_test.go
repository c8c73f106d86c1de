package hubcore

import (
	"testing"
	"time"
)

// TestEnumerationOpensMatchingDevices verifies discovery opens new
// interfaces in non-blocking mode and matches existing ones by path.
func TestEnumerationOpensMatchingDevices(t *testing.T) {
	h, backend := newTestHub()
	dev := backend.addDevice("p1")

	h.enumerateDevices()

	node := h.nodes.Load()
	if node == nil || node.path != "p1" {
		t.Fatal("Device was not opened")
	}
	if !dev.nonblocking {
		t.Error("Device not switched to non-blocking reads")
	}
	if node.deviceID != DeviceIDUnassigned {
		t.Error("Fresh node has an id before registration")
	}

	// A second pass must not open a duplicate.
	h.enumerateDevices()
	if node.next.Load() != nil {
		t.Error("Duplicate node appended for an already open path")
	}
}

// TestEnumerationSkipsFailedOpen verifies an open failure is skipped and
// retried on the next pass.
func TestEnumerationSkipsFailedOpen(t *testing.T) {
	h, backend := newTestHub()
	backend.addDevice("p1")
	backend.openErr["p1"] = true

	h.enumerateDevices()
	if h.nodes.Load() != nil {
		t.Fatal("Node created despite open failure")
	}

	backend.openErr["p1"] = false
	h.enumerateDevices()
	if h.nodes.Load() == nil {
		t.Fatal("Device not opened on retry")
	}
}

// TestRetirementHandshake walks a vanished device through the full
// unregister/delete protocol between discovery and the I/O loop.
func TestRetirementHandshake(t *testing.T) {
	h, backend := newTestHub()
	h.config.SleepStep = time.Millisecond
	devices := setupDevices(t, h, backend, 3)
	devC := devices[2]

	backend.removeDevice("p3")

	// First discovery cycle after the disappearance only flags the node.
	h.enumerateDevices()
	nodeC := h.nodes.Load().next.Load().next.Load()
	if nodeC == nil || !nodeC.markedForUnregistration.Load() {
		t.Fatal("Missing device not marked for unregistration")
	}
	if nodeC.markedForDeletion.Load() {
		t.Fatal("Deletion acknowledged before the I/O loop ran")
	}

	// Next I/O pass unregisters and acknowledges.
	h.runPass()
	if h.nRegistered != 2 {
		t.Errorf("Expected 2 registered after retirement, got %d", h.nRegistered)
	}
	if !nodeC.markedForDeletion.Load() {
		t.Fatal("I/O pass did not acknowledge deletion")
	}

	// The next discovery cycle unlinks, then waits for a fresh I/O
	// iteration before freeing the node.
	enumerationDone := make(chan struct{})
	go func() {
		h.enumerateDevices()
		close(enumerationDone)
	}()

	time.Sleep(5 * time.Millisecond)
	h.runPass()

	select {
	case <-enumerationDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Discovery stuck in the removal handshake")
	}

	if !devC.isClosed() {
		t.Error("Retired device handle not closed")
	}
	count := 0
	for node := h.nodes.Load(); node != nil; node = node.next.Load() {
		if node.path == "p3" {
			t.Error("Retired node still linked")
		}
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 nodes after retirement, got %d", count)
	}
}

// TestMarkedNodeIsNotServiced verifies the I/O loop stops touching a
// flagged node's handle.
func TestMarkedNodeIsNotServiced(t *testing.T) {
	h, backend := newTestHub()
	devices := setupDevices(t, h, backend, 1)
	dev := devices[0]

	node := h.nodes.Load()
	node.markedForUnregistration.Store(true)
	dev.queueRead(mkFrame(DefaultCommandID, 0xFF, 0x01))

	h.runPass()

	if len(dev.writtenFrames()) != 0 {
		t.Error("Marked node was written to")
	}
	if h.nRegistered != 0 {
		t.Error("Marked node was not unregistered")
	}
	if !node.markedForDeletion.Load() {
		t.Error("Marked node was not acknowledged for deletion")
	}
}
