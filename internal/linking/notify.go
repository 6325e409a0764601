// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package linking

import "context"

// NoticeLevel is the severity of a transient notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user notification.
type Notice struct {
	Level   NoticeLevel
	Message string
	// Persistent notices stay visible until dismissed.
	Persistent bool
}

// Notifier shows transient notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Connector requests a fresh pairing code from the backend.
type Connector interface {
	Connect(ctx context.Context) (string, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (string, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context) (string, error) { return f(ctx) }

// CodeStore remembers the live code so a later lifecycle can show it again
// instead of issuing a new one. It survives a process restart only when
// its backing storage does.
type CodeStore interface {
	Load(ctx context.Context) (Code, bool, error)
	Save(ctx context.Context, code Code) error
	Clear(ctx context.Context) error
}
