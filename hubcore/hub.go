package hubcore

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/BertoldVdb/hidhub/gohid"
)

// Log classes passed to LogFunc. The CLI decides which classes are printed.
const (
	LogBasic = iota + 1
	LogStats
	LogHubFrame
	LogDeviceFrame
	LogDiscardFrame
)

type LogFunc func(class int, format string, param ...interface{})

type Config struct {
	// CommandID is the first byte of every hub frame. Frames read with a
	// different first byte are discarded.
	CommandID byte

	// Usage tuple a raw HID interface must expose to be picked up.
	UsagePage uint16
	Usage     uint16

	// DiscoveryPeriod is the delay between enumeration passes.
	DiscoveryPeriod time.Duration

	// SleepDisabled turns off the tail sleep of the I/O loop entirely.
	// SmartSleepDisabled makes the tail sleep unconditional instead of
	// gated on message inactivity.
	SleepDisabled      bool
	SmartSleepDisabled bool
	SleepStep          time.Duration
	SmartSleepWait     time.Duration

	// StatsInterval controls how often StatsFunc is invoked, when set.
	StatsInterval time.Duration
	StatsFunc     func(snapshot StatsSnapshot)

	LogFunc LogFunc
}

// Hub relays 32 byte raw HID frames between registered devices. Exactly two
// agents touch it while running: the discovery task reconciling the device
// table with the backend enumeration, and the I/O loop moving frames.
type Hub struct {
	backend gohid.Backend
	config  Config

	// Device table head. Written by discovery, read by the I/O loop.
	nodes atomic.Pointer[deviceNode]

	// Handshake for the removal protocol: discovery clears it and waits
	// for the I/O loop to complete a full pass before freeing an
	// unlinked node.
	newIterationFlag atomic.Bool

	shutdownFlag  atomic.Bool
	running       atomic.Bool
	discoveryStop chan struct{}
	discoveryDone chan struct{}

	// Registrar state, I/O loop only.
	registrationsChanged bool
	nRegistered          int
	nextUnassignedID     int
	deviceIDIsAssigned   [NumDeviceIDs]bool
	assignedDeviceIDs    [MaxRegisteredDevices]byte

	// Outgoing frames per destination id, I/O loop only.
	queues [NumDeviceIDs]messageQueue

	// Write buffer: report id byte followed by the frame.
	bufferReportIDAndData [ReportSize + 1]byte

	currentTimeMs     int64
	lastMessageTimeMs int64

	stats statsState
}

func New(backend gohid.Backend, config Config) *Hub {
	if config.CommandID == 0 {
		config.CommandID = DefaultCommandID
	}
	if config.UsagePage == 0 {
		config.UsagePage = QMKUsagePage
	}
	if config.Usage == 0 {
		config.Usage = QMKUsage
	}
	if config.DiscoveryPeriod == 0 {
		config.DiscoveryPeriod = time.Second
	}
	if config.SleepStep == 0 {
		if runtime.GOOS == "windows" {
			config.SleepStep = time.Millisecond
		} else {
			// Roughly a 240Hz tick.
			config.SleepStep = 4166667 * time.Nanosecond
		}
	}
	if config.SmartSleepWait == 0 {
		config.SmartSleepWait = 100 * time.Millisecond
	}
	if config.StatsInterval == 0 {
		config.StatsInterval = 5 * time.Second
	}

	h := &Hub{
		backend:       backend,
		config:        config,
		discoveryStop: make(chan struct{}),
		discoveryDone: make(chan struct{}),
	}

	h.nextUnassignedID = 1
	for i := range h.assignedDeviceIDs {
		h.assignedDeviceIDs[i] = DeviceIDUnassigned
	}
	h.bufferReportIDAndData[0] = ReportID

	h.updateCurrentTime()
	h.lastMessageTimeMs = h.currentTimeMs
	h.stats.enabled = config.StatsFunc != nil
	h.stats.lastTimeMs = h.currentTimeMs

	return h
}

func (h *Hub) log(class int, format string, param ...interface{}) {
	if h.config.LogFunc != nil {
		h.config.LogFunc(class, format, param...)
	}
}

func (h *Hub) updateCurrentTime() {
	h.currentTimeMs = time.Now().UnixMilli()
}

// shouldSleep gates the tail sleep of the I/O loop. With smart sleep the
// step is skipped while messages are actively flowing, keeping relay latency
// minimal during bursts.
func (h *Hub) shouldSleep() bool {
	if h.config.SleepDisabled {
		return false
	}
	if !h.config.SmartSleepDisabled {
		return h.currentTimeMs-h.lastMessageTimeMs >= h.config.SmartSleepWait.Milliseconds()
	}
	return true
}

func (h *Hub) mainSleep() {
	if h.shouldSleep() {
		time.Sleep(h.config.SleepStep)
	}
}

// Shutdown requests cooperative termination. Safe to call from any
// goroutine, typically a signal handler.
func (h *Hub) Shutdown() {
	h.shutdownFlag.Store(true)
}

// Run starts the discovery task and executes the I/O loop until Shutdown is
// called. On return the device table and queues are released and every
// registered device has been sent a hub shutdown frame.
func (h *Hub) Run() error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrorAlreadyRunning
	}

	go h.discoveryLoop()

	for !h.shutdownFlag.Load() {
		h.updateCurrentTime()
		h.iteratePass()
		h.maybeEmitStats()
		h.mainSleep()
	}

	h.cleanup()
	return nil
}

func (h *Hub) cleanup() {
	h.sendHubShutdownReports()
	h.stopDiscovery()
	h.nodeFreeAll()
	h.queueClearAll()
	h.log(LogBasic, "Cleanup completed.")
}

// iteratePass services every node once. Nodes flagged by discovery are
// unregistered and acknowledged for deletion; their handle is not touched
// again by this loop.
func (h *Hub) iteratePass() {
	currentNode := h.nodes.Load()
	for currentNode != nil {
		if currentNode.markedForUnregistration.Load() {
			h.unregisterNode(currentNode)
			currentNode.markedForDeletion.Store(true)
		} else {
			h.serviceNode(currentNode)
		}
		currentNode = currentNode.next.Load()
	}
	h.newIterationFlag.Store(true)
}

// sendHubShutdownReports tells every registered device that the hub is going
// away, bypassing the queues.
func (h *Hub) sendHubShutdownReports() {
	bufferData := h.bufferReportIDAndData[1:]
	bufferData[0] = h.config.CommandID
	bufferData[1] = DeviceIDHub
	bufferData[2] = DeviceIDUnassigned

	currentNode := h.nodes.Load()
	for currentNode != nil {
		if deviceIDIsValid(currentNode.deviceID) {
			currentNode.dev.Write(h.bufferReportIDAndData[:])
		}
		currentNode = currentNode.next.Load()
	}
}
