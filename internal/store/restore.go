package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/famfund/internal/model"
)

// flexTime decodes timestamps written either as RFC 3339 strings, bare dates,
// or epoch milliseconds.
type flexTime struct {
	t time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		f.t = time.UnixMilli(ms).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	t, err := model.ParseDate(s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	f.t = t
	return nil
}

// flexID accepts numeric ids from older saves.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

type storedTransaction struct {
	model.Transaction
	ID        flexID   `json:"id"`
	CreatedAt flexTime `json:"createdAt"`
	Date      flexTime `json:"date"`
}

func (st storedTransaction) restore() model.Transaction {
	t := st.Transaction
	t.ID = string(st.ID)
	t.CreatedAt = st.CreatedAt.t
	if t.CreatedAt.IsZero() {
		t.CreatedAt = st.Date.t
	}
	if t.Description == "" {
		t.Description = t.Category
	}
	return t
}

type storedGoal struct {
	model.Goal
	ID        flexID    `json:"id"`
	Deadline  *flexTime `json:"deadline"`
	CreatedAt flexTime  `json:"createdAt"`
}

func (sg storedGoal) restore() model.Goal {
	g := sg.Goal
	g.ID = string(sg.ID)
	g.CreatedAt = sg.CreatedAt.t
	g.Deadline = nil
	if sg.Deadline != nil && !sg.Deadline.t.IsZero() {
		d := sg.Deadline.t
		g.Deadline = &d
	}
	return g
}

type storedCategory struct {
	model.Category
	ID flexID `json:"id"`
}
