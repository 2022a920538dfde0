package delivery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mindcare/backend/internal/db"
	"mindcare/backend/internal/logger"
	"mindcare/backend/internal/metrics"
	"mindcare/backend/internal/models"
	"mindcare/backend/internal/realtime"
)

const DefaultTypingDelay = 1500 * time.Millisecond

var (
	ErrLaneFull = errors.New("too many pending replies")
	ErrStopped  = errors.New("dispatcher stopped")
	ErrSlotUsed = errors.New("reply slot already used")
)

// Reply is a bot answer waiting for its typing delay to elapse.
type Reply struct {
	UserID   string    `json:"user_id"`
	Text     string    `json:"text"`
	Category string    `json:"category"`
	DueAt    time.Time `json:"due_at"`
}

// Sink hands a due reply to its destination.
type Sink func(ctx context.Context, reply Reply) error

// Dispatcher delays replies and delivers them in send order per user.
// Callers reserve room for a reply before writing anything the reply
// depends on, so a rejected request leaves no state behind.
type Dispatcher interface {
	Reserve(ctx context.Context, userID string) (Slot, error)
	// Stop cancels pending replies and waits for in-flight deliveries.
	Stop()
}

// Slot is room for one reply of one user. It is consumed by Schedule;
// Release gives it back and is a no-op after Schedule, so it can be
// deferred.
type Slot interface {
	Schedule(ctx context.Context, reply Reply) error
	Release()
}

// Inline delivers replies the moment they are scheduled, ignoring DueAt.
// Sink errors are returned to the caller.
type Inline struct {
	sink Sink
}

func NewInline(sink Sink) *Inline {
	return &Inline{sink: sink}
}

func (i *Inline) Reserve(_ context.Context, userID string) (Slot, error) {
	return &inlineSlot{sink: i.sink, userID: userID}, nil
}

func (i *Inline) Stop() {}

type inlineSlot struct {
	sink   Sink
	userID string
	used   bool
}

func (s *inlineSlot) Schedule(ctx context.Context, reply Reply) error {
	if s.used {
		return ErrSlotUsed
	}
	s.used = true
	reply.UserID = s.userID
	if err := s.sink(ctx, reply); err != nil {
		metrics.Deliveries.WithLabelValues("failed").Inc()
		return err
	}
	metrics.Deliveries.WithLabelValues("delivered").Inc()
	return nil
}

func (s *inlineSlot) Release() { s.used = true }

// StoreAndBroadcast persists the reply as a bot message and pushes it to
// the user's open sockets.
func StoreAndBroadcast(store db.Store, hub *realtime.Hub) Sink {
	return func(ctx context.Context, reply Reply) error {
		msg, err := store.AppendMessage(ctx, models.Message{
			UserID:    reply.UserID,
			Text:      reply.Text,
			Sender:    models.SenderBot,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if hub != nil {
			hub.Broadcast(reply.UserID, "message", map[string]any{
				"message":  msg,
				"category": reply.Category,
			})
		}
		return nil
	}
}

// wait blocks until due or until ctx ends; it reports whether the reply is
// still wanted.
func wait(ctx context.Context, due time.Time) bool {
	d := time.Until(due)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// deliver waits for the reply to fall due and hands it to sink. It returns
// false when ctx ended first and the reply was not handed over.
func deliver(ctx context.Context, sink Sink, reply Reply) bool {
	if !wait(ctx, reply.DueAt) {
		metrics.Deliveries.WithLabelValues("cancelled").Inc()
		return false
	}
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := sink(sinkCtx, reply); err != nil {
		metrics.Deliveries.WithLabelValues("failed").Inc()
		logger.Log.Error("reply_delivery_failed", zap.String("user_id", reply.UserID), zap.Error(err))
		return true
	}
	metrics.Deliveries.WithLabelValues("delivered").Inc()
	logger.Log.Debug("reply_delivered", zap.String("user_id", reply.UserID), zap.String("category", reply.Category))
	return true
}
