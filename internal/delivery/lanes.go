package delivery

import (
	"context"
	"sync"
)

const laneCapacity = 32

type lane struct {
	replies  chan Reply
	reserved int
	running  bool
}

// Lanes runs one goroutine per user with pending replies. A lane drains its
// queue strictly in order and exits once empty. Reserved slots count
// against the lane's capacity, so a reservation always fits.
type Lanes struct {
	sink Sink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lanes   map[string]*lane
	stopped bool
}

func NewLanes(sink Sink) *Lanes {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lanes{sink: sink, ctx: ctx, cancel: cancel, lanes: map[string]*lane{}}
}

func (l *Lanes) Reserve(_ context.Context, userID string) (Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil, ErrStopped
	}
	ln, ok := l.lanes[userID]
	if !ok {
		ln = &lane{replies: make(chan Reply, laneCapacity)}
		l.lanes[userID] = ln
	}
	if len(ln.replies)+ln.reserved >= laneCapacity {
		return nil, ErrLaneFull
	}
	ln.reserved++
	return &laneSlot{lanes: l, userID: userID}, nil
}

// Schedule reserves and fills a slot in one step.
func (l *Lanes) Schedule(ctx context.Context, reply Reply) error {
	slot, err := l.Reserve(ctx, reply.UserID)
	if err != nil {
		return err
	}
	return slot.Schedule(ctx, reply)
}

func (l *Lanes) run(userID string, ln *lane) {
	defer l.wg.Done()
	for {
		// Slots only send while holding mu, so an empty lane seen here stays
		// empty until running is cleared.
		l.mu.Lock()
		if len(ln.replies) == 0 {
			ln.running = false
			l.dropIdleLocked(userID, ln)
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
		deliver(l.ctx, l.sink, <-ln.replies)
	}
}

func (l *Lanes) dropIdleLocked(userID string, ln *lane) {
	if !ln.running && ln.reserved == 0 && len(ln.replies) == 0 {
		delete(l.lanes, userID)
	}
}

// Pending reports how many users have replies queued or reserved.
func (l *Lanes) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func (l *Lanes) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.cancel()
	l.wg.Wait()
}

type laneSlot struct {
	lanes  *Lanes
	userID string
	used   bool
}

func (s *laneSlot) Schedule(_ context.Context, reply Reply) error {
	l := s.lanes
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.used {
		return ErrSlotUsed
	}
	s.used = true
	ln := l.lanes[s.userID]
	ln.reserved--
	if l.stopped {
		l.dropIdleLocked(s.userID, ln)
		return ErrStopped
	}
	reply.UserID = s.userID
	ln.replies <- reply
	if !ln.running {
		ln.running = true
		l.wg.Add(1)
		go l.run(s.userID, ln)
	}
	return nil
}

func (s *laneSlot) Release() {
	l := s.lanes
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.used {
		return
	}
	s.used = true
	ln := l.lanes[s.userID]
	ln.reserved--
	l.dropIdleLocked(s.userID, ln)
}
