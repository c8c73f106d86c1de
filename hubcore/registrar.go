package hubcore

// RegisterResult is the outcome of a registration request.
type RegisterResult int

const (
	RegisterNew RegisterResult = iota
	RegisterAlreadyRegistered
	RegisterFull
)

// registerNode assigns the next free device id to node. At most
// MaxRegisteredDevices nodes can hold an id at the same time.
func (h *Hub) registerNode(node *deviceNode) RegisterResult {
	if deviceIDIsValid(node.deviceID) {
		return RegisterAlreadyRegistered
	}
	if h.nRegistered == MaxRegisteredDevices {
		h.log(LogBasic, "Too many registered devices.")
		return RegisterFull
	}

	node.deviceID = h.nextUnassignedID
	h.deviceIDIsAssigned[h.nextUnassignedID] = true
	for h.deviceIDIsAssigned[h.nextUnassignedID] {
		h.nextUnassignedID = (h.nextUnassignedID + 1) % NumDeviceIDs
	}

	h.assignedDeviceIDs[h.nRegistered] = byte(node.deviceID)
	h.nRegistered++
	h.log(LogBasic, "Device was registered with ID: 0x%02x", node.deviceID)
	h.registrationsChanged = true
	return RegisterNew
}

// unregisterNode releases the node's id and drops any frames still queued
// for it.
func (h *Hub) unregisterNode(node *deviceNode) {
	if node.deviceID == DeviceIDUnassigned {
		return
	}
	h.log(LogBasic, "Device with ID 0x%02x was unregistered.", node.deviceID)

	h.queueClear(node.deviceID)
	for i := 0; i < h.nRegistered; i++ {
		if h.assignedDeviceIDs[i] == byte(node.deviceID) {
			h.assignedDeviceIDs[i] = h.assignedDeviceIDs[h.nRegistered-1]
			h.assignedDeviceIDs[h.nRegistered-1] = DeviceIDUnassigned
			break
		}
	}
	h.deviceIDIsAssigned[node.deviceID] = false
	node.deviceID = DeviceIDUnassigned
	h.nRegistered--
	h.registrationsChanged = true
}

// buildStatusFrame writes a full status frame for one recipient into buffer.
// The member block is the assigned id array with the recipient's own id
// swapped into byte 2, so a device can always find itself first. Unused
// slots read as 0xFF.
func (h *Hub) buildStatusFrame(buffer []byte, recipientDeviceID byte) {
	buffer[0] = h.config.CommandID
	buffer[1] = DeviceIDHub
	copy(buffer[2:2+MaxRegisteredDevices], h.assignedDeviceIDs[:])
	for j := 3; j < h.nRegistered+2; j++ {
		if buffer[j] == recipientDeviceID {
			buffer[j] = buffer[2]
			buffer[2] = recipientDeviceID
			break
		}
	}
}

// enqueueStatusFrames queues a status frame to every registered device.
// Called at the end of servicing a node whenever membership changed.
func (h *Hub) enqueueStatusFrames(buffer []byte) {
	for i := 0; i < h.nRegistered; i++ {
		destinationDeviceID := h.assignedDeviceIDs[i]
		h.buildStatusFrame(buffer, destinationDeviceID)
		h.queuePush(int(destinationDeviceID), buffer)
		h.stats.countMessage(DeviceIDHub, int(destinationDeviceID))
	}
	h.registrationsChanged = false
}
