package hubcore

import (
	"sync/atomic"

	"github.com/BertoldVdb/hidhub/gohid"
)

// deviceNode is one entry of the device table: a singly linked chain of open
// raw HID interfaces shared between the discovery task and the I/O loop.
//
// Field ownership is strict. Discovery is the only writer of next, path, the
// handle and markedForUnregistration; the I/O loop is the only writer of
// deviceID and markedForDeletion; inEnumeration is discovery-private scratch.
// The shared fields are atomics, there is no lock on the hot path.
type deviceNode struct {
	dev  gohid.HIDDevice
	path string

	deviceID      int
	inEnumeration bool

	markedForUnregistration atomic.Bool
	markedForDeletion       atomic.Bool
	next                    atomic.Pointer[deviceNode]
}

// nodeAppend links a freshly opened device behind previousNode, or installs
// it as the list head. Discovery only.
func (h *Hub) nodeAppend(dev gohid.HIDDevice, path string, previousNode *deviceNode) *deviceNode {
	newNode := &deviceNode{
		dev:      dev,
		path:     path,
		deviceID: DeviceIDUnassigned,
	}
	newNode.inEnumeration = true

	if previousNode == nil {
		h.nodes.Store(newNode)
	} else {
		previousNode.next.Store(newNode)
	}

	return newNode
}

// nodeUnlink removes node from the chain. Discovery only, and only once the
// I/O loop has acknowledged via markedForDeletion. The caller must still run
// the new-iteration handshake before freeing the node.
func (h *Hub) nodeUnlink(previousNode *deviceNode, node *deviceNode) {
	if previousNode == nil {
		h.nodes.Store(node.next.Load())
	} else {
		previousNode.next.Store(node.next.Load())
	}
}

func (n *deviceNode) free() {
	if n.dev != nil {
		n.dev.Close()
		n.dev = nil
	}
}

// nodeFreeAll tears down the whole table. Only called after both agents have
// stopped.
func (h *Hub) nodeFreeAll() {
	currentNode := h.nodes.Load()
	for currentNode != nil {
		nextNode := currentNode.next.Load()
		currentNode.free()
		currentNode = nextNode
	}
	h.nodes.Store(nil)
}
