package application

import (
	"context"

	"lingua-telegram/internal/domain/ports/adapter"
)

// Reply is what the transport should do in answer to one update. For
// callbacks, Edit replaces the source message and Toast answers the query.
type Reply struct {
	Text     string
	Keyboard adapter.Keyboard
	Edit     bool
	Toast    string
}

func (r Reply) Empty() bool { return r.Text == "" }

// BotFacadeIface is the surface the update dispatcher depends on. Every
// method returns a usable Reply even when err is non-nil; err is for logging.
type BotFacadeIface interface {
	Start(ctx context.Context, tgID int64) (Reply, error)
	Help(ctx context.Context) (Reply, error)
	Link(ctx context.Context, tgID int64, username, args string) (Reply, error)
	Unlink(ctx context.Context, tgID int64) (Reply, error)
	Settings(ctx context.Context, tgID int64) (Reply, error)
	Stats(ctx context.Context, tgID int64) (Reply, error)
	Callback(ctx context.Context, tgID int64, data string) (Reply, error)
	UnknownCommand(ctx context.Context) (Reply, error)
	RateLimited(ctx context.Context) Reply
	Commands() []adapter.BotCommand
}
