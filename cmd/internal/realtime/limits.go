package realtime

import "time"

// Transport limits for the sync socket. Inbound frames are tiny commands, so
// the read limit stays small; outbound snapshots are bounded only by the send
// queue and the peer's read limit.
const (
	defaultMaxFrameBytes = 32 << 10 // 32 KiB

	defaultSendQueueSize = 64

	defaultHeartbeatInterval = 25 * time.Second
	defaultWriteTimeout      = 10 * time.Second

	// Inbound command budget per connection.
	defaultMsgRateWindow = 10 * time.Second
	defaultMsgRateMax    = 60
)
