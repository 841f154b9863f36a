package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

type GoalInput struct {
	Title    string          `json:"title"`
	Target   decimal.Decimal `json:"target"`
	Color    string          `json:"color"`
	Deadline *time.Time      `json:"deadline"`
}

// UnmarshalJSON accepts the deadline as a bare date as well as a timestamp.
func (in *GoalInput) UnmarshalJSON(data []byte) error {
	type plain GoalInput
	aux := struct {
		*plain
		Deadline *model.Date `json:"deadline"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	in.Deadline = aux.Deadline.Ptr()
	return nil
}

func (s *Store) AddGoal(ctx context.Context, in GoalInput) (model.Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Goal{}, s.reject(fmt.Errorf("%w: title", ErrMissingField))
	}
	if !in.Target.IsPositive() {
		return model.Goal{}, s.reject(ErrInvalidAmount)
	}
	if in.Color == "" {
		in.Color = model.DefaultGoalColor
	}

	gw, familyID, remoteMode := s.target.Target()
	g := model.Goal{
		ID:        s.nextLocalID(),
		Title:     in.Title,
		Target:    in.Target,
		Current:   decimal.Zero,
		Color:     in.Color,
		Deadline:  in.Deadline,
		CreatedAt: s.now(),
	}
	if _, err := s.commit(partGoals, func(st State) (State, error) {
		st.Goals = prepend(st.Goals, g)
		if remoteMode {
			st.Tentative = st.Tentative.withGoal(g.ID, true)
		}
		return st, nil
	}); err != nil {
		return model.Goal{}, err
	}

	if remoteMode {
		stored, err := gw.AddGoal(ctx, familyID, g)
		if err != nil {
			s.remoteFailed("add goal", familyID, err)
		} else {
			s.confirmGoal(g.ID, stored)
			g = stored
		}
	}

	s.notifier.Notify(model.NotifySuccess, "Goal added")
	return g, nil
}

func (s *Store) confirmGoal(localID string, stored model.Goal) {
	s.commit(partGoals, func(st State) (State, error) {
		i, ok := st.findGoal(localID)
		if !ok {
			return st, errUnchanged
		}
		st.Goals = replaced(st.Goals, i, stored)
		st.Tentative = st.Tentative.withGoal(localID, false).withGoal(stored.ID, true)
		return st, nil
	})
}

// AddMoneyToGoal raises the goal's current amount, never past its target.
func (s *Store) AddMoneyToGoal(ctx context.Context, id string, amount decimal.Decimal) (model.Goal, error) {
	if !amount.IsPositive() {
		return model.Goal{}, s.reject(ErrInvalidAmount)
	}
	g, err := s.modifyGoal(ctx, id, func(g model.Goal) (model.Goal, error) {
		return g.WithMoney(amount), nil
	})
	if err != nil {
		return model.Goal{}, err
	}
	s.notifier.Notify(model.NotifySuccess, "Money added to goal")
	return g, nil
}

// UpdateGoal applies the set fields of upd. Current is clamped to the target.
func (s *Store) UpdateGoal(ctx context.Context, id string, upd remote.GoalUpdate) (model.Goal, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return model.Goal{}, s.reject(fmt.Errorf("%w: title", ErrMissingField))
	}
	if upd.Target != nil && !upd.Target.IsPositive() {
		return model.Goal{}, s.reject(ErrInvalidAmount)
	}
	if upd.Current != nil && upd.Current.IsNegative() {
		return model.Goal{}, s.reject(ErrInvalidAmount)
	}

	g, err := s.modifyGoal(ctx, id, func(g model.Goal) (model.Goal, error) {
		if upd.Title != nil {
			g.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Target != nil {
			g.Target = *upd.Target
		}
		if upd.Current != nil {
			g.Current = *upd.Current
		}
		if upd.Color != nil && *upd.Color != "" {
			g.Color = *upd.Color
		}
		switch {
		case upd.ClearDeadline:
			g.Deadline = nil
		case upd.Deadline != nil:
			d := *upd.Deadline
			g.Deadline = &d
		}
		g.Current = decimal.Min(g.Current, g.Target)
		return g, nil
	})
	if err != nil {
		return model.Goal{}, err
	}
	s.notifier.Notify(model.NotifySuccess, "Goal updated")
	return g, nil
}

// modifyGoal replaces a goal with fn's result and, in cloud mode, writes the
// full resulting record remotely.
func (s *Store) modifyGoal(ctx context.Context, id string, fn func(model.Goal) (model.Goal, error)) (model.Goal, error) {
	gw, familyID, remoteMode := s.target.Target()

	var updated model.Goal
	_, err := s.commit(partGoals, func(st State) (State, error) {
		i, ok := st.findGoal(id)
		if !ok {
			return st, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		g, err := fn(st.Goals[i])
		if err != nil {
			return st, err
		}
		updated = g
		st.Goals = replaced(st.Goals, i, g)
		if remoteMode {
			st.Tentative = st.Tentative.withGoal(id, true)
		}
		return st, nil
	})
	if err != nil {
		return model.Goal{}, s.reject(err)
	}

	if remoteMode {
		if err := gw.UpdateGoal(ctx, familyID, id, goalRecord(updated)); err != nil {
			s.remoteFailed("update goal", familyID, err)
		}
	}
	return updated, nil
}

func goalRecord(g model.Goal) remote.GoalUpdate {
	upd := remote.GoalUpdate{
		Title:   &g.Title,
		Target:  &g.Target,
		Current: &g.Current,
		Color:   &g.Color,
	}
	if g.Deadline == nil {
		upd.ClearDeadline = true
	} else {
		upd.Deadline = g.Deadline
	}
	return upd
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	gw, familyID, remoteMode := s.target.Target()
	if _, err := s.commit(partGoals, func(st State) (State, error) {
		i, ok := st.findGoal(id)
		if !ok {
			return st, fmt.Errorf("goal %s: %w", id, ErrNotFound)
		}
		st.Goals = without(st.Goals, i)
		st.Tentative = st.Tentative.withGoal(id, false)
		return st, nil
	}); err != nil {
		return s.reject(err)
	}

	if remoteMode {
		if err := gw.DeleteGoal(ctx, familyID, id); err != nil {
			s.remoteFailed("delete goal", familyID, err)
		}
	}
	s.notifier.Notify(model.NotifySuccess, "Goal deleted")
	return nil
}
