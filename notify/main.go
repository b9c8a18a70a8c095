package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

type subscriber[E any] struct {
	ch      chan E
	comment string
	dropped int
}

// Multiplexer sends each value to every subscriber channel.
type Multiplexer[E any] struct {
	comment string
	// Timeout is how long Send waits for one subscriber before skipping it.
	// Zero means Send never waits.
	Timeout         time.Duration
	subscribersLock sync.Mutex
	subscribers     []*subscriber[E]
}

func NewMultiplexer[E any](comment string) *Multiplexer[E] {
	return &Multiplexer[E]{comment: comment}
}

func (m *Multiplexer[E]) Subscribe(comment string, c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	m.subscribers = append(m.subscribers, &subscriber[E]{ch: c, comment: comment})
}

// Unsubscribe removes c. Unsubscribing a channel twice panics.
func (m *Multiplexer[E]) Unsubscribe(c chan E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	i := slices.IndexFunc(m.subscribers, func(sub *subscriber[E]) bool { return sub.ch == c })
	if i == -1 {
		panic("already unsubscribed")
	}
	m.subscribers = slices.Delete(m.subscribers, i, i+1)
}

func (m *Multiplexer[E]) Len() int {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	return len(m.subscribers)
}

// Send delivers e to subscribers in subscription order.
func (m *Multiplexer[E]) Send(e E) {
	m.subscribersLock.Lock()
	defer m.subscribersLock.Unlock()
	for _, sub := range m.subscribers {
		if m.Timeout == 0 {
			select {
			case sub.ch <- e:
			default:
				m.skip(sub)
			}
			continue
		}
		t := time.NewTimer(m.Timeout)
		select {
		case sub.ch <- e:
		case <-t.C:
			m.skip(sub)
		}
		t.Stop()
	}
}

func (m *Multiplexer[E]) skip(sub *subscriber[E]) {
	sub.dropped++
	// log the first skip and every 100th after that
	if sub.dropped%100 == 1 {
		zap.S().Warnw("multiplexer subscriber skipped", "multiplexer", m.comment, "subscriber", sub.comment, "dropped", sub.dropped)
	}
}
