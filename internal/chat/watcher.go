// Package chat contains the polling synchronization used by the customer
// widget and the admin console. There is no push transport: both sides poll
// the full chat on a fixed interval and the last fetch wins wholesale.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/poll"
)

// Poll cadences for the two consoles. Delivery latency is bounded by these.
const (
	CustomerPollInterval  = 2 * time.Second
	AdminChatPollInterval = 3 * time.Second
	AdminListPollInterval = 5 * time.Second
)

// Snapshot is one full read of a chat: the session plus every message.
type Snapshot struct {
	Session  model.ChatSession
	Messages []model.ChatMessage
}

// Fetcher reads a full chat by ID.
type Fetcher interface {
	Chat(ctx context.Context, id string) (model.ChatSession, []model.ChatMessage, error)
}

// Watcher polls one chat and keeps the latest snapshot. Every successful
// poll overwrites the local state entirely; there is no merging or conflict
// resolution. Fetch failures are logged and retried on the next cycle.
type Watcher struct {
	chatID   string
	fetcher  Fetcher
	onUpdate func(Snapshot)
	poller   *poll.Poller

	mu   sync.RWMutex
	snap *Snapshot
}

// NewWatcher creates a watcher for the given chat. onUpdate, if non-nil, is
// called after each poll that changed the visible state.
func NewWatcher(fetcher Fetcher, chatID string, interval time.Duration, onUpdate func(Snapshot), logger *zap.Logger) *Watcher {
	w := &Watcher{
		chatID:   chatID,
		fetcher:  fetcher,
		onUpdate: onUpdate,
	}
	w.poller = poll.New("chat-"+chatID, interval, w.refresh, logger)
	return w
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.poller.Run(ctx)
}

// Snapshot returns the latest snapshot, false before the first successful
// poll.
func (w *Watcher) Snapshot() (Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.snap == nil {
		return Snapshot{}, false
	}
	return *w.snap, true
}

func (w *Watcher) refresh(ctx context.Context) error {
	session, messages, err := w.fetcher.Chat(ctx, w.chatID)
	if err != nil {
		return err
	}

	next := Snapshot{Session: session, Messages: messages}

	w.mu.Lock()
	changed := w.snap == nil || snapshotChanged(*w.snap, next)
	w.snap = &next
	w.mu.Unlock()

	if changed && w.onUpdate != nil {
		w.onUpdate(next)
	}
	return nil
}

func snapshotChanged(prev, next Snapshot) bool {
	return prev.Session.State != next.Session.State ||
		prev.Session.AgentName != next.Session.AgentName ||
		len(prev.Messages) != len(next.Messages)
}
