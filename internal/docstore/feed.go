package docstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

// listener coalesces change signals: while a delivery is in flight at most one
// more is queued, and it always reloads the latest snapshot.
type listener struct {
	code    string
	stream  remote.Stream
	wake    chan struct{}
	stop    chan struct{}
	stopped atomic.Bool
}

type feed struct {
	mu        sync.Mutex
	listeners map[string]map[*listener]struct{}
}

func newFeed() *feed {
	return &feed{listeners: make(map[string]map[*listener]struct{})}
}

func (f *feed) add(l *listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.listeners[l.code]
	if !ok {
		set = make(map[*listener]struct{})
		f.listeners[l.code] = set
	}
	set[l] = struct{}{}
}

func (f *feed) remove(l *listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.listeners[l.code]
	delete(set, l)
	if len(set) == 0 {
		delete(f.listeners, l.code)
	}
}

func (f *feed) publish(code string, streams ...remote.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for l := range f.listeners[code] {
		for _, s := range streams {
			if l.stream != s {
				continue
			}
			select {
			case l.wake <- struct{}{}:
			default:
			}
		}
	}
}

// count returns the number of live listeners for code.
func (f *feed) count(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[code])
}

func subscribe[T any](s *Store, code string, stream remote.Stream, load func(context.Context, string) (T, error), fn func(remote.Result[T])) (remote.Subscription, error) {
	code = normalize(code)
	if code == "" {
		return nil, errors.New("subscribe: family code required")
	}

	l := &listener{
		code:   code,
		stream: stream,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	l.wake <- struct{}{}
	s.feed.add(l)

	go func() {
		for {
			select {
			case <-l.stop:
				return
			case <-l.wake:
				v, err := load(context.Background(), code)
				if l.stopped.Load() {
					return
				}
				fn(remote.ResultOf(v, err))
			}
		}
	}()

	return remote.NewSubscription(func() {
		l.stopped.Store(true)
		s.feed.remove(l)
		close(l.stop)
	}), nil
}

func (s *Store) SubscribeFamily(code string, fn func(remote.Result[*model.Family])) (remote.Subscription, error) {
	return subscribe(s, code, remote.StreamFamily, s.GetFamily, fn)
}

func (s *Store) SubscribeTransactions(code string, fn func(remote.Result[[]model.Transaction])) (remote.Subscription, error) {
	return subscribe(s, code, remote.StreamTransactions, s.ListTransactions, fn)
}

func (s *Store) SubscribeGoals(code string, fn func(remote.Result[[]model.Goal])) (remote.Subscription, error) {
	return subscribe(s, code, remote.StreamGoals, s.ListGoals, fn)
}

// Listeners returns the number of active subscriptions for a family.
func (s *Store) Listeners(code string) int {
	return s.feed.count(normalize(code))
}
