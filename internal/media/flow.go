package media

import (
	"sync"
	"sync/atomic"
)

// Flow fans encoded packets out to any number of subscribers. A subscriber
// that falls behind loses its oldest queued packets, never the newest.
type Flow struct {
	subscribers []chan *Packet
	dropped     uint64

	sync.Mutex
}

func (f *Flow) Subscribe(capacity int) <-chan *Packet {
	f.Lock()
	defer f.Unlock()

	if capacity <= 0 {
		panic("media.Flow: receiver capacity must be positive")
	}

	s := make(chan *Packet, capacity)
	f.subscribers = append(f.subscribers, s)
	return s
}

// Unsubscribe removes s and closes it.
func (f *Flow) Unsubscribe(s <-chan *Packet) error {
	f.Lock()
	defer f.Unlock()

	// Find and delete s from the subscriber list.
	// See https://github.com/golang/go/wiki/SliceTricks
	found := false
	for i, subscriber := range f.subscribers {
		if s == subscriber {
			subs := f.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			subs[len(subs)-1] = nil
			f.subscribers = subs[:len(subs)-1]
			found = true
			break
		}
	}
	if !found {
		return errNotSubscribed
	}
	return nil
}

// Put delivers p to every subscriber without blocking.
func (f *Flow) Put(p *Packet) {
	f.Lock()
	defer f.Unlock()

	for _, subscriber := range f.subscribers {
		for {
			select {
			case subscriber <- p:
			default:
				// Drop oldest packet, then retry. The subscriber may have
				// drained the channel in the meantime.
				select {
				case <-subscriber:
					atomic.AddUint64(&f.dropped, 1)
					log.Debug("media.Flow: subscriber missed a packet")
				default:
				}
				continue
			}
			break
		}
	}
}

// Subscribers returns the current number of subscribers.
func (f *Flow) Subscribers() int {
	f.Lock()
	defer f.Unlock()
	return len(f.subscribers)
}

// Dropped returns the number of packets discarded for slow subscribers.
func (f *Flow) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}

// Close closes all subscriber channels. Packets still queued can be read.
func (f *Flow) Close() error {
	f.Lock()
	defer f.Unlock()

	for _, subscriber := range f.subscribers {
		close(subscriber)
	}
	f.subscribers = nil
	return nil
}
