// Package presence tracks which users currently hold at least one live
// socket. It replaces an ambient global with an injectable component so both
// request handlers and the push dispatcher can consult it concurrently.
package presence

import (
	"context"

	"github.com/google/uuid"
)

// Registry is the live membership set of connected user ids. Connect and
// Disconnect account per-socket: a user with several sockets only transitions
// on the first connect (first=true) and the last disconnect (last=true),
// which is when the dispatcher announces the presence change.
type Registry interface {
	Connect(ctx context.Context, userID uuid.UUID) (first bool, err error)
	Disconnect(ctx context.Context, userID uuid.UUID) (last bool, err error)
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}
