package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
)

func TestCenterShowAndDismiss(t *testing.T) {
	c := NewCenter()
	defer c.Close()

	var mu sync.Mutex
	var events []Event
	c.OnEvent(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	n := c.Show(model.NotifySuccess, "Transaction added")
	if n.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if got := len(c.Active()); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}

	if !c.Dismiss(n.ID) {
		t.Error("first dismiss should report true")
	}
	if c.Dismiss(n.ID) {
		t.Error("second dismiss should report false")
	}
	if got := len(c.Active()); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0].Action != ActionShown || events[1].Action != ActionDismissed {
		t.Errorf("events = %+v, want shown then dismissed", events)
	}
}

func TestCenterAutoDismiss(t *testing.T) {
	c := NewCenter()
	c.dismissAfter = 20 * time.Millisecond
	defer c.Close()

	dismissed := make(chan int64, 1)
	c.OnEvent(func(e Event) {
		if e.Action == ActionDismissed {
			dismissed <- e.Notification.ID
		}
	})

	n := c.Show(model.NotifyWarning, "Budget nearly used")
	select {
	case id := <-dismissed:
		if id != n.ID {
			t.Errorf("dismissed id = %d, want %d", id, n.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not auto-dismissed")
	}
	if got := len(c.Active()); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}
}

func TestCenterDefaultDelay(t *testing.T) {
	c := NewCenter()
	if c.dismissAfter != 5*time.Second {
		t.Errorf("dismissAfter = %v, want 5s", c.dismissAfter)
	}
}

func TestAlertMessageJSON(t *testing.T) {
	msg := NewAlertMessage("AB12CD34", "arthur", model.Alert{
		Check:   model.CheckCategoryLimits,
		Tier:    model.TierExceeded,
		Kind:    model.NotifyError,
		Subject: "Groceries",
		Percent: decimal.RequireFromString("108.3"),
	})

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	got, err := AlertMessageFromJSON(data)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got.FamilyCode != "AB12CD34" || got.Alert.Subject != "Groceries" {
		t.Errorf("decoded = %+v", got)
	}
	if !got.Alert.Percent.Equal(msg.Alert.Percent) {
		t.Errorf("percent = %s, want %s", got.Alert.Percent, msg.Alert.Percent)
	}
}
