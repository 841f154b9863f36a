package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
)

const goalColumns = `id, title, target, current, color, deadline, created_at`

func scanGoal(sc interface{ Scan(...any) error }) (model.Goal, error) {
	var g model.Goal
	var deadline sql.NullTime
	if err := sc.Scan(&g.ID, &g.Title, &g.Target, &g.Current, &g.Color, &deadline, &g.CreatedAt); err != nil {
		return model.Goal{}, err
	}
	if deadline.Valid {
		d := deadline.Time
		g.Deadline = &d
	}
	return g, nil
}

func (s *Store) AddGoal(ctx context.Context, code string, g model.Goal) (model.Goal, error) {
	code = normalize(code)

	exists, err := familyExists(ctx, s.db, code)
	if err != nil {
		return model.Goal{}, err
	}
	if !exists {
		return model.Goal{}, fmt.Errorf("family %s: %w", code, remote.ErrNotFound)
	}

	g.ID = uuid.NewString()
	g.CreatedAt = s.now()
	if g.Color == "" {
		g.Color = model.DefaultGoalColor
	}
	var deadline any
	if g.Deadline != nil {
		deadline = g.Deadline.UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO goals (id, family_code, title, target, current, color, deadline, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, code, g.Title, g.Target.String(), g.Current.String(), g.Color, deadline, g.CreatedAt,
	)
	if err != nil {
		return model.Goal{}, fmt.Errorf("insert goal: %w", err)
	}

	s.feed.publish(code, remote.StreamGoals)
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, code, id string, upd remote.GoalUpdate) error {
	code = normalize(code)

	var sets []string
	var args []any
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Target != nil {
		sets = append(sets, "target = ?")
		args = append(args, upd.Target.String())
	}
	if upd.Current != nil {
		sets = append(sets, "current = ?")
		args = append(args, upd.Current.String())
	}
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *upd.Color)
	}
	switch {
	case upd.ClearDeadline:
		sets = append(sets, "deadline = NULL")
	case upd.Deadline != nil:
		sets = append(sets, "deadline = ?")
		args = append(args, upd.Deadline.UTC())
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, code)

	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET `+strings.Join(sets, ", ")+` WHERE id = ? AND family_code = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal %s: %w", id, remote.ErrNotFound)
	}
	s.feed.publish(code, remote.StreamGoals)
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, code, id string) error {
	code = normalize(code)
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND family_code = ?`, id, code)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal %s: %w", id, remote.ErrNotFound)
	}
	s.feed.publish(code, remote.StreamGoals)
	return nil
}

func (s *Store) ListGoals(ctx context.Context, code string) ([]model.Goal, error) {
	code = normalize(code)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE family_code = ? ORDER BY created_at DESC, rowid DESC`, code,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
