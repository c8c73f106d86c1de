package hubcore

// serviceNode performs one full service cycle for an open device: drain and
// route inbound frames, queue status frames if membership changed, then
// flush the node's outgoing queue.
func (h *Hub) serviceNode(node *deviceNode) {
	bufferData := h.bufferReportIDAndData[1:]

	// A negative read means the device is gone; it stays open until
	// discovery notices the absence.
	bytesRead, _ := node.dev.Read(bufferData)
	for bytesRead > 0 {
		h.routeFrame(node, bufferData)
		bytesRead, _ = node.dev.Read(bufferData)
	}

	if h.registrationsChanged {
		h.enqueueStatusFrames(bufferData)
	}

	if deviceIDIsValid(node.deviceID) {
		for h.queues[node.deviceID].pop(bufferData) {
			if bufferData[1] == DeviceIDHub {
				h.log(LogHubFrame, "Sending to 0x%02x:     %s", node.deviceID, formatFrame(bufferData))
			} else {
				h.log(LogDeviceFrame, "Sending to 0x%02x:     %s", node.deviceID, formatFrame(bufferData))
			}
			node.dev.Write(h.bufferReportIDAndData[:])
		}
	}
}

// routeFrame classifies one inbound frame and dispatches it. bufferData may
// be rewritten in place when the frame is relayed.
func (h *Hub) routeFrame(node *deviceNode, bufferData []byte) {
	if bufferData[0] != h.config.CommandID {
		h.log(LogDiscardFrame, "Discarding:          %s", formatFrame(bufferData))
		return
	}

	if bufferData[1] == DeviceIDHub {
		h.log(LogHubFrame, "Receiving from 0x%02x: %s", node.deviceID, formatFrame(bufferData))
	}

	// Registration request. A new registration is answered through the
	// membership broadcast; a repeated one gets a single status frame.
	if bufferData[1] == DeviceIDHub && bufferData[2] == 0x01 {
		h.stats.countMessage(node.deviceID, DeviceIDHub)
		if h.registerNode(node) == RegisterAlreadyRegistered {
			destinationDeviceID := byte(node.deviceID)
			h.buildStatusFrame(bufferData, destinationDeviceID)
			h.queuePush(int(destinationDeviceID), bufferData)
			h.stats.countMessage(DeviceIDHub, int(destinationDeviceID))
		}
		return
	}

	// Everything below requires the sender to be registered.
	if !deviceIDIsValid(node.deviceID) {
		return
	}

	// Unregistration request.
	if bufferData[1] == DeviceIDHub && bufferData[2] == 0x00 {
		h.stats.countMessage(node.deviceID, DeviceIDHub)
		h.unregisterNode(node)
		return
	}

	// Device to device message: rewrite the header byte from destination
	// id to origin id and queue it.
	if bufferData[1] != DeviceIDHub {
		destinationDeviceID := int(bufferData[1])
		if !h.deviceIDIsAssigned[destinationDeviceID] {
			return
		}
		bufferData[1] = byte(node.deviceID)
		h.queuePush(destinationDeviceID, bufferData)
		h.stats.countMessage(node.deviceID, destinationDeviceID)
		if !h.config.SmartSleepDisabled {
			h.lastMessageTimeMs = h.currentTimeMs
		}
		return
	}

	// Hub frame with an unknown request byte.
}
