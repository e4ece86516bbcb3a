package vault

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/secsky/secsky/backend/internal/logging"
	"github.com/secsky/secsky/backend/internal/model"
	"github.com/secsky/secsky/backend/internal/store"
)

// RecentActivityLimit is the size of the recent-activity feed.
const RecentActivityLimit = 10

const appendTimeout = 5 * time.Second

// Ledger exposes the activity feed and records mutation events.
//
// Record is fire-and-forget: the append runs on its own goroutine, detached
// from the request's cancellation, after the primary mutation has committed.
// An append failure is logged and never surfaces to the caller.
type Ledger struct {
	entries store.Activity
	log     logging.Logger
	wg      sync.WaitGroup
}

func NewLedger(entries store.Activity, log logging.Logger) *Ledger {
	return &Ledger{entries: entries, log: log}
}

// Record appends one event asynchronously.
func (l *Ledger) Record(ctx context.Context, ownerID, eventType, subjectID, nameSnapshot string) {
	now := time.Now().UTC()
	entry := &model.ActivityEntry{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Type:         eventType,
		SubjectID:    subjectID,
		Timestamp:    now,
		TS:           now.UnixNano(),
		NameSnapshot: nameSnapshot,
	}

	detached := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		appendCtx, cancel := context.WithTimeout(detached, appendTimeout)
		defer cancel()
		if err := l.entries.Append(appendCtx, entry); err != nil {
			l.log.Warn(appendCtx, "activity append failed",
				"user_id", ownerID, "type", eventType, "error", err)
		}
	}()
}

// Recent returns the owner's newest events, timestamp-descending.
func (l *Ledger) Recent(ctx context.Context, ownerID string) ([]model.ActivityEntry, error) {
	return l.entries.Recent(ctx, ownerID, RecentActivityLimit)
}

// Flush blocks until all in-flight appends finish. Used by tests.
func (l *Ledger) Flush() {
	l.wg.Wait()
}
