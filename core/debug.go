package core

// DebugWriter is a function type for writing debug messages.
type DebugWriter func(string)

// MotorEvent captures a commutation-timing event for post-mortem analysis.
// The ring is written from tick handlers, so recording must stay
// allocation-free and non-blocking.
type MotorEvent struct {
	EventType uint8
	OID       uint8
	Clock     uint32
	Value1    uint32
	Value2    uint32
}

// Event type codes
const (
	EvtStart    = 1 // off -> rampup
	EvtCommStep = 2 // sector advanced (v1=sector, v2=period)
	EvtHandoff  = 3 // rampup -> on (v1=period, v2=duty)
	EvtStop     = 4 // stop requested
)

const eventRingSize = 32

var (
	// debugPrintln is the platform debug sink (UART, USB, ...).
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates the blocking print path; off by default because
	// output during ramp-up distorts the very timing being examined.
	debugEnabled bool = false

	eventRing     [eventRingSize]MotorEvent
	eventRingHead uint8
	eventsEnabled bool = true

	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled.
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message through the platform writer. Blocks;
// use DebugAsync from timing-sensitive paths.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a message for async output. Drops when the channel is
// full rather than blocking.
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordEvent captures a motor event in the ring buffer.
func RecordEvent(eventType, oid uint8, clock, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = MotorEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % eventRingSize
}

// DumpEventRing prints the event ring oldest-first. Call after stopping
// the motor; not from a tick handler.
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVT] === Motor Event Dump ===")

	start := eventRingHead
	for i := uint8(0); i < eventRingSize; i++ {
		idx := (start + i) % eventRingSize
		evt := &eventRing[idx]
		if evt.EventType == 0 {
			continue
		}

		var name string
		switch evt.EventType {
		case EvtStart:
			name = "START"
		case EvtCommStep:
			name = "COMM_STEP"
		case EvtHandoff:
			name = "HANDOFF"
		case EvtStop:
			name = "STOP"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[EVT] " + name +
			" oid=" + itoa(int(evt.OID)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVT] === End Dump ===")
}

// ClearEventRing clears the event buffer.
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = MotorEvent{}
	}
	eventRingHead = 0
}
