package store

import (
	"sync"
)

// Hub fans snapshots out to subscribers. Each subscriber is served by its
// own goroutine through a mailbox that keeps only the newest snapshot, so an
// observer may write back to the store from inside its callback.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	hub *Hub
	id  uint64
	obs Observer

	mu        sync.Mutex
	pending   *Snapshot
	errs      []error
	delivered uint64
	started   bool
	detached  bool // created on a closed hub, only errors are delivered

	wake chan struct{}
	stop chan struct{}
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Add registers an observer and queues initial as its first snapshot.
func (h *Hub) Add(obs Observer, initial Snapshot) Subscription {
	s := h.add(obs)
	s.offer(initial)
	go s.run()
	return s
}

// AddErr registers an observer whose initial read failed: err is delivered
// first and later snapshots still reach it.
func (h *Hub) AddErr(obs Observer, err error) Subscription {
	s := h.add(obs)
	s.offerErr(err)
	go s.run()
	return s
}

func (h *Hub) add(obs Observer) *subscriber {
	s := &subscriber{
		hub:  h,
		obs:  obs,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.detached = true
		s.offerErr(ErrClosed)
		return s
	}
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	return s
}

// Publish queues snap for every subscriber.
func (h *Hub) Publish(snap Snapshot) {
	for _, s := range h.snapshotSubs() {
		s.offer(snap)
	}
}

// PublishError queues err for every subscriber.
func (h *Hub) PublishError(err error) {
	for _, s := range h.snapshotSubs() {
		s.offerErr(err)
	}
}

// Close stops every subscriber; later Add calls only receive ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[uint64]*subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.halt()
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) snapshotSubs() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s)
	}
	return out
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (s *subscriber) Unsubscribe() {
	s.hub.remove(s.id)
	s.halt()
}

func (s *subscriber) halt() {
	s.once.Do(func() { close(s.stop) })
}

func (s *subscriber) offer(snap Snapshot) {
	s.mu.Lock()
	stale := s.detached || (s.started && snap.Revision <= s.delivered)
	if !stale && (s.pending == nil || snap.Revision >= s.pending.Revision) {
		s.pending = &snap
	}
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) offerErr(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() (*Snapshot, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, errs := s.pending, s.errs
	s.pending, s.errs = nil, nil
	if snap != nil {
		s.delivered = snap.Revision
		s.started = true
	}
	return snap, errs
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}
		for {
			snap, errs := s.take()
			if snap == nil && len(errs) == 0 {
				break
			}
			for _, err := range errs {
				if s.stopped() {
					return
				}
				if s.obs.Error != nil {
					s.obs.Error(err)
				}
			}
			if snap != nil && !s.stopped() && s.obs.Snapshot != nil {
				s.obs.Snapshot(*snap)
			}
		}
	}
}

func (s *subscriber) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
