// Package session owns the current family identity and decides whether
// mutations go to the shared remote store or stay on this device.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/remote"
	"github.com/dukerupert/famfund/internal/store"
)

// RemoteTimeout bounds each create or join call against the remote store.
const RemoteTimeout = 10 * time.Second

// Change is delivered to listeners whenever the session is replaced.
// Family is the remote record when one was fetched, otherwise nil.
type Change struct {
	Session model.Session
	Family  *model.Family
}

type Manager struct {
	mu        sync.RWMutex
	current   model.Session
	listeners []func(Change)

	gateway  remote.Gateway
	local    *store.LocalStore
	notifier notify.Notifier
	logger   *slog.Logger
	newCode  func() (string, error)
	timeout  time.Duration
}

// NewManager restores the persisted session. gateway may be nil, in which case
// every session is local.
func NewManager(gateway remote.Gateway, local *store.LocalStore, notifier notify.Notifier, logger *slog.Logger) (*Manager, error) {
	sess, err := local.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	// A stored cloud session cannot be served without a gateway.
	if gateway == nil && sess.Mode == model.SyncCloud {
		sess.Mode = model.SyncLocal
		sess.FamilyID = ""
	}
	return &Manager{
		current:  sess,
		gateway:  gateway,
		local:    local,
		notifier: notifier,
		logger:   logger.With("component", "session"),
		newCode:  GenerateCode,
		timeout:  RemoteTimeout,
	}, nil
}

func (m *Manager) Current() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Target returns the gateway and family id that mutations should be written to.
// ok is false when the session is local.
func (m *Manager) Target() (gw remote.Gateway, familyID string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gateway == nil || !m.current.Remote() {
		return nil, "", false
	}
	return m.gateway, m.current.FamilyID, true
}

// OnChange registers fn to be called after the session is replaced.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Resume announces the restored session to listeners so they can attach
// subscriptions at startup.
func (m *Manager) Resume() {
	m.emit(Change{Session: m.Current()})
}

// Reload re-reads the persisted session, for example after a restore, and
// announces it.
func (m *Manager) Reload() error {
	sess, err := m.local.LoadSession()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if m.gateway == nil && sess.Mode == model.SyncCloud {
		sess.Mode = model.SyncLocal
		sess.FamilyID = ""
	}
	m.setCurrent(sess)
	m.emit(Change{Session: sess})
	return nil
}

// CreateFamily starts a new family named after the creator. When the remote
// store rejects the create, the family continues as a local session under the
// same code.
func (m *Manager) CreateFamily(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		m.notifier.Notify(model.NotifyError, "Please enter your name")
		return "", ErrNameRequired
	}
	code, err := m.newCode()
	if err != nil {
		return "", fmt.Errorf("generate family code: %w", err)
	}

	sess := model.Session{FamilyCode: code, UserName: name, Connected: true, Mode: model.SyncLocal}
	var fam *model.Family
	if m.gateway != nil {
		rctx, cancel := context.WithTimeout(ctx, m.timeout)
		fam, err = m.gateway.CreateFamily(rctx, code, name, name, model.NewBalances(m.local.Partners()...))
		cancel()
		if err != nil {
			m.logger.Warn("remote create failed, using local session", "family", code, "error", err)
			fam = nil
		} else {
			sess.FamilyID = code
			sess.Mode = model.SyncCloud
		}
	}

	if err := m.adopt(sess, fam); err != nil {
		return code, err
	}
	if sess.Mode == model.SyncCloud {
		m.notifier.Notify(model.NotifySuccess, fmt.Sprintf("Family created. Share code %s with your partner", code))
	} else {
		m.notifier.Notify(model.NotifyWarning, fmt.Sprintf("Family %s created in local mode", code))
	}
	return code, nil
}

// JoinFamily connects to an existing family. The code is validated before any
// remote call. Any remote failure, including an unknown code, leaves a local
// session under the requested code.
func (m *Manager) JoinFamily(ctx context.Context, code, name string) error {
	code = NormalizeCode(code)
	if err := ValidateCode(code); err != nil {
		m.notifier.Notify(model.NotifyError, "Family code must be 8 characters")
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		m.notifier.Notify(model.NotifyError, "Please enter your name")
		return ErrNameRequired
	}

	sess := model.Session{FamilyCode: code, UserName: name, Connected: true, Mode: model.SyncLocal}
	var fam *model.Family
	if m.gateway != nil {
		rctx, cancel := context.WithTimeout(ctx, m.timeout)
		var err error
		fam, err = m.gateway.JoinFamily(rctx, code, name)
		cancel()
		if err != nil {
			m.logger.Warn("remote join failed, using local session", "family", code, "error", err)
			fam = nil
		} else {
			sess.FamilyID = code
			sess.Mode = model.SyncCloud
		}
	}

	if err := m.adopt(sess, fam); err != nil {
		return err
	}
	if sess.Mode == model.SyncCloud {
		m.notifier.Notify(model.NotifySuccess, fmt.Sprintf("Joined family %s", fam.Name))
	} else {
		m.notifier.Notify(model.NotifyWarning, fmt.Sprintf("Connected to family %s in local mode", code))
	}
	return nil
}

// Disconnect forgets the current family. The remote record is left in place.
func (m *Manager) Disconnect(ctx context.Context) error {
	sess := model.Session{Mode: model.SyncLocal}
	if err := m.local.ClearSession(); err != nil {
		m.setCurrent(sess)
		m.emit(Change{Session: sess})
		return fmt.Errorf("clear session: %w", err)
	}
	m.setCurrent(sess)
	m.emit(Change{Session: sess})
	m.notifier.Notify(model.NotifySuccess, "Disconnected from family")
	return nil
}

// adopt installs sess in memory before persisting it, so a storage failure
// never leaves the user without a working session.
func (m *Manager) adopt(sess model.Session, fam *model.Family) error {
	m.setCurrent(sess)
	m.emit(Change{Session: sess, Family: fam})
	if err := m.local.SaveSession(sess); err != nil {
		m.logger.Error("persist session", "family", sess.FamilyCode, "error", err)
		m.notifier.Notify(model.NotifyError, "Could not save the session on this device")
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Manager) setCurrent(sess model.Session) {
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
}

func (m *Manager) emit(c Change) {
	m.mu.RLock()
	listeners := make([]func(Change), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(c)
	}
}
