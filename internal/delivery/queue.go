package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mindcare/backend/internal/logger"
)

const queueKey = "mindcare:replies"

// list is the slice of the redis client the queue needs.
type list interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
}

// Queue keeps pending replies in a redis list so they survive a restart.
// A single worker pops them in FIFO order, which keeps every user's replies
// in send order.
type Queue struct {
	client list
	closer func() error
	sink   Sink
	poll   time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func NewQueue(redisURL string, sink Sink) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newQueue(client, client.Close, sink), nil
}

func newQueue(client list, closer func() error, sink Sink) *Queue {
	return &Queue{client: client, closer: closer, sink: sink, poll: 200 * time.Millisecond}
}

// Start launches the worker. It returns immediately.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.work(ctx)
}

func (q *Queue) isStopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Reserve never runs out of room; the list is unbounded and request volume
// is held back by the rate limiter.
func (q *Queue) Reserve(_ context.Context, userID string) (Slot, error) {
	if q.isStopped() {
		return nil, ErrStopped
	}
	return &queueSlot{queue: q, userID: userID}, nil
}

func (q *Queue) Schedule(ctx context.Context, reply Reply) error {
	if q.isStopped() {
		return ErrStopped
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, queueKey, payload).Err()
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := q.client.RPop(ctx, queueKey).Bytes()
		if errors.Is(err, redis.Nil) {
			sleep(ctx, q.poll)
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				logger.Log.Warn("reply_queue_pop_failed", zap.Error(err))
			}
			sleep(ctx, 2*time.Second)
			continue
		}

		var reply Reply
		if err := json.Unmarshal(raw, &reply); err != nil {
			logger.Log.Error("reply_queue_bad_payload", zap.Error(err))
			continue
		}
		if !deliver(ctx, q.sink, reply) {
			q.requeue(raw)
			return
		}
	}
}

// requeue puts a popped reply back at the tail so it is popped first by the
// next worker.
func (q *Queue) requeue(raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.client.RPush(ctx, queueKey, raw).Err(); err != nil {
		logger.Log.Error("reply_requeue_failed", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Stop ends the worker. A reply popped but not yet due goes back to the
// list, which keeps everything pending for the next start.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	if q.cancel != nil {
		q.cancel()
		<-q.done
	}
	if q.closer != nil {
		_ = q.closer()
	}
}

type queueSlot struct {
	queue  *Queue
	userID string
	used   bool
}

func (s *queueSlot) Schedule(ctx context.Context, reply Reply) error {
	if s.used {
		return ErrSlotUsed
	}
	s.used = true
	reply.UserID = s.userID
	return s.queue.Schedule(ctx, reply)
}

func (s *queueSlot) Release() { s.used = true }
