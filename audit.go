package authcore

import (
	"io"

	"github.com/modernwms/authcore/internal/audit"
)

// AuditEvent is one audit record emitted by the engine. Delivery is
// asynchronous; see [Builder.WithAuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = audit.Sink

// NoOpAuditSink discards every event.
type NoOpAuditSink = audit.NoOpSink

// ChannelAuditSink buffers events in a channel for in-process consumers.
type ChannelAuditSink = audit.ChannelSink

// NewChannelAuditSink returns a sink backed by a buffered channel.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONAuditSink returns a sink writing one JSON object per line to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types emitted by the engine.
const (
	AuditEventLogin          = "login"
	AuditEventRefresh        = "refresh"
	AuditEventRefreshReuse   = "refresh_reuse"
	AuditEventLogout         = "logout"
	AuditEventLogoutAll      = "logout_all"
	AuditEventPasswordChange = "password_change"
)
