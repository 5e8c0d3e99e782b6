package domain

import (
	"errors"
	"time"
)

// ErrNoWebhooks reports a spam session started without any target.
var ErrNoWebhooks = errors.New("at least one webhook is required")

// SpamSettings describes a repeating fan-out of one message to several webhooks.
type SpamSettings struct {
	Webhooks  []string
	Message   Message
	Interval  time.Duration
	MaxCycles int // 0 means unlimited
}

// SpamStopReason records why a session left the running state.
type SpamStopReason string

const (
	// SpamStopReasonNone marks a session that is still running.
	SpamStopReasonNone SpamStopReason = ""
	// SpamStopReasonStopped marks an explicit stop request.
	SpamStopReasonStopped SpamStopReason = "stopped"
	// SpamStopReasonCompleted marks a session that ran its configured number of cycles.
	SpamStopReasonCompleted SpamStopReason = "completed"
	// SpamStopReasonShutdown marks a session cancelled during process shutdown.
	SpamStopReasonShutdown SpamStopReason = "shutdown"
	// SpamStopReasonAbandoned marks a session nobody polled within the idle timeout.
	SpamStopReasonAbandoned SpamStopReason = "abandoned"
)

// SpamStats is a point-in-time view of a spam session.
type SpamStats struct {
	ID         string
	Running    bool
	Webhooks   int
	Interval   time.Duration
	MaxCycles  int
	Cycles     int64
	Sent       int64
	Failed     int64
	StartedAt  time.Time
	StoppedAt  *time.Time
	StopReason SpamStopReason
}
