package sched

import (
	"context"
	"errors"

	"github.com/go-co-op/gocron/v2"

	"lingua-telegram/internal/infra/lock"
)

var errNotLeader = errors.New("not the scheduler leader")

// leaderElector lets gocron skip every run on instances that do not hold the
// leader lock. Holding it is re-checked on each run, so a follower takes
// over as soon as the old leader lets go.
type leaderElector struct {
	leader lock.Leader
}

var _ gocron.Elector = (*leaderElector)(nil)

func (e *leaderElector) IsLeader(ctx context.Context) error {
	ok, err := e.leader.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNotLeader
	}
	return e.leader.Refresh(ctx)
}
