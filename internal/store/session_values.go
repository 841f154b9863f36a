package store

import (
	"fmt"
	"time"

	"github.com/dukerupert/famfund/internal/model"
)

func (s *LocalStore) LoadSession() (model.Session, error) {
	var sess model.Session
	var mode string
	fields := []struct {
		key string
		dst any
	}{
		{KeyFamilyCode, &sess.FamilyCode},
		{KeyFamilyID, &sess.FamilyID},
		{KeyUserName, &sess.UserName},
		{KeyConnected, &sess.Connected},
		{KeySyncMode, &mode},
	}
	for _, f := range fields {
		if _, err := s.getJSON(f.key, f.dst); err != nil {
			return model.Session{}, fmt.Errorf("load session: %w", err)
		}
	}
	sess.Mode = model.ParseSyncMode(mode)
	return sess, nil
}

func (s *LocalStore) SaveSession(sess model.Session) error {
	values := []struct {
		key string
		v   any
	}{
		{KeyFamilyCode, nullIfEmpty(sess.FamilyCode)},
		{KeyFamilyID, nullIfEmpty(sess.FamilyID)},
		{KeyUserName, sess.UserName},
		{KeyConnected, sess.Connected},
		{KeySyncMode, string(sess.Mode)},
	}
	for _, v := range values {
		if err := s.setJSON(v.key, v.v); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

// ClearSession resets the session identifiers to a disconnected local session.
func (s *LocalStore) ClearSession() error {
	return s.SaveSession(model.Session{Mode: model.SyncLocal})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func limitCheckKey(check model.Check, at time.Time) string {
	return fmt.Sprintf("%s%s_%s", limitCheckPrefix, check, at.Format("2006-01"))
}

// LastCheck returns when check last ran in the calendar month of at.
// The zero time means it has not run this month.
func (s *LocalStore) LastCheck(check model.Check, at time.Time) (time.Time, error) {
	var ms int64
	ok, err := s.getJSON(limitCheckKey(check, at), &ms)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (s *LocalStore) MarkCheck(check model.Check, at time.Time) error {
	return s.setJSON(limitCheckKey(check, at), at.UnixMilli())
}

func (s *LocalStore) PushSubscriptions() ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if _, err := s.getJSON(KeyPushSubscriptions, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// AddPushSubscription stores sub, replacing any entry with the same endpoint.
func (s *LocalStore) AddPushSubscription(sub model.PushSubscription) error {
	subs, err := s.PushSubscriptions()
	if err != nil {
		return err
	}
	out := subs[:0]
	for _, existing := range subs {
		if existing.Endpoint != sub.Endpoint {
			out = append(out, existing)
		}
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return s.setJSON(KeyPushSubscriptions, append(out, sub))
}

func (s *LocalStore) RemovePushSubscription(endpoint string) error {
	subs, err := s.PushSubscriptions()
	if err != nil {
		return err
	}
	out := make([]model.PushSubscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Endpoint != endpoint {
			out = append(out, sub)
		}
	}
	return s.setJSON(KeyPushSubscriptions, out)
}
