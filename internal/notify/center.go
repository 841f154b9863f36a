// Package notify holds transient user notifications and alert fan-out sinks.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/famfund/internal/model"
)

// DismissAfter is how long a notification stays visible without user action.
const DismissAfter = 5 * time.Second

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(kind model.NotificationKind, message string)
}

// AlertSink receives threshold alerts for delivery outside the app.
type AlertSink interface {
	Deliver(ctx context.Context, msg AlertMessage) error
}

type Action string

const (
	ActionShown     Action = "shown"
	ActionDismissed Action = "dismissed"
)

type Event struct {
	Action       Action             `json:"action"`
	Notification model.Notification `json:"notification"`
}

// Center keeps the visible notifications and dismisses each after a delay.
type Center struct {
	mu           sync.Mutex
	nextID       int64
	active       []model.Notification
	timers       map[int64]*time.Timer
	listeners    []func(Event)
	dismissAfter time.Duration
	now          func() time.Time
}

func NewCenter() *Center {
	return &Center{
		timers:       make(map[int64]*time.Timer),
		dismissAfter: DismissAfter,
		now:          time.Now,
	}
}

// OnEvent registers fn to be called after each show or dismissal.
func (c *Center) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Center) Notify(kind model.NotificationKind, message string) {
	c.Show(kind, message)
}

// Show adds a notification and schedules its dismissal.
func (c *Center) Show(kind model.NotificationKind, message string) model.Notification {
	c.mu.Lock()
	c.nextID++
	n := model.Notification{
		ID:        c.nextID,
		Kind:      kind,
		Message:   message,
		CreatedAt: c.now(),
	}
	c.active = append(c.active, n)
	id := n.ID
	c.timers[id] = time.AfterFunc(c.dismissAfter, func() { c.Dismiss(id) })
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(Event{Action: ActionShown, Notification: n})
	}
	return n
}

// Dismiss removes a notification. It reports false if it was already gone.
func (c *Center) Dismiss(id int64) bool {
	c.mu.Lock()
	idx := -1
	for i, n := range c.active {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	n := c.active[idx]
	c.active = append(c.active[:idx:idx], c.active[idx+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(Event{Action: ActionDismissed, Notification: n})
	}
	return true
}

// Active returns the visible notifications, oldest first.
func (c *Center) Active() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, len(c.active))
	copy(out, c.active)
	return out
}

// Close stops all pending dismissal timers.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
