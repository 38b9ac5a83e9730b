package ports

import "time"

// Metrics receives instrumentation callbacks from the core services. The
// prometheus collector in infrastructure implements it; passing nil disables
// instrumentation.
type Metrics interface {
	RecordBootstrap(outcome string, duration time.Duration)
	RecordConnectAttempt(success bool)
	RecordReconnect()
	RecordInboundEvent(event string)
	RecordOutboundEvent(event string)
	RecordDroppedEmit(event string)
}
