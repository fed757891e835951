package tracker

import (
	"sync"
	"time"

	"InvestLogic/internal/model"
)

// Snapshot is a user's full trade list after a write.
type Snapshot struct {
	UserID string              `json:"user_id"`
	Trades []model.TradeRecord `json:"trades"`
	At     time.Time           `json:"at"`
}

// Feed fans trade snapshots out to per-user subscribers. Each subscription
// buffers one snapshot; a slow reader only ever sees the latest one.
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives snapshots on C until Close is called.
type Subscription struct {
	C <-chan Snapshot

	ch     chan Snapshot
	userID string
	feed   *Feed
	once   sync.Once
}

func NewFeed() *Feed {
	return &Feed{subs: map[string]map[*Subscription]struct{}{}}
}

func (f *Feed) Subscribe(userID string) *Subscription {
	ch := make(chan Snapshot, 1)
	s := &Subscription{C: ch, ch: ch, userID: userID, feed: f}

	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.subs[userID]
	if !ok {
		set = map[*Subscription]struct{}{}
		f.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

// Close unregisters the subscription and closes C. It is safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		f := s.feed
		f.mu.Lock()
		defer f.mu.Unlock()
		if set, ok := f.subs[s.userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(f.subs, s.userID)
			}
		}
		close(s.ch)
	})
}

// Publish delivers snap to every subscriber of snap.UserID without blocking.
func (f *Feed) Publish(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs[snap.UserID] {
		select {
		case s.ch <- snap:
			continue
		default:
		}
		// drop the stale snapshot and retry once
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- snap:
		default:
		}
	}
}

// Subscribers reports how many live subscriptions userID has.
func (f *Feed) Subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[userID])
}
