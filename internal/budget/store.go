// Package budget holds the in-process view of balances, transactions, goals,
// categories and rates, and applies user mutations to it.
package budget

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/remote"
	"github.com/dukerupert/famfund/internal/store"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrUnknownOwner  = errors.New("unknown balance owner")
	ErrNotFound      = errors.New("not found")
	ErrCancelled     = errors.New("cancelled")
	ErrMissingField  = errors.New("required field missing")
)

// errUnchanged aborts a commit without publishing a new state.
var errUnchanged = errors.New("unchanged")

// Targeter reports where mutations should be written. ok is false in local mode.
type Targeter interface {
	Target() (gw remote.Gateway, familyID string, ok bool)
}

type part uint8

const (
	partBalances part = 1 << iota
	partTransactions
	partGoals
	partCategories
	partRates
)

type Store struct {
	mu        sync.RWMutex
	state     *State
	listeners []func(State)

	persistMu sync.Mutex

	idMu   sync.Mutex
	lastID int64

	subMu      sync.Mutex
	subs       []remote.Subscription
	generation atomic.Uint64

	local    *store.LocalStore
	target   Targeter
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	pick     func(n int) int
}

// NewStore loads the last persisted state from local.
func NewStore(local *store.LocalStore, target Targeter, notifier notify.Notifier, logger *slog.Logger) (*Store, error) {
	st, err := load(local)
	if err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now()
	return &Store{
		state:    &st,
		local:    local,
		target:   target,
		notifier: notifier,
		logger:   logger.With("component", "budget"),
		now:      time.Now,
		pick:     rand.IntN,
	}, nil
}

func load(local *store.LocalStore) (State, error) {
	balances, err := local.Balances()
	if err != nil {
		return State{}, fmt.Errorf("load balances: %w", err)
	}
	txs, err := local.Transactions()
	if err != nil {
		return State{}, fmt.Errorf("load transactions: %w", err)
	}
	goals, err := local.Goals()
	if err != nil {
		return State{}, fmt.Errorf("load goals: %w", err)
	}
	cats, err := local.Categories()
	if err != nil {
		return State{}, fmt.Errorf("load categories: %w", err)
	}
	rates, err := local.Rates()
	if err != nil {
		return State{}, fmt.Errorf("load rates: %w", err)
	}
	return State{
		Balances:     balances,
		Transactions: txs,
		Goals:        goals,
		Categories:   cats,
		Rates:        rates,
	}, nil
}

// Reload replaces the state with what is persisted locally.
func (s *Store) Reload() error {
	st, err := load(s.local)
	if err != nil {
		return err
	}
	_, err = s.commit(0, func(State) (State, error) {
		return st, nil
	})
	return err
}

// Snapshot returns the current state. The returned value must not be modified.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.state
}

// OnChange registers fn to be called with every new state.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// commit builds the next state from the current one, publishes it and writes
// the changed parts to local storage.
func (s *Store) commit(parts part, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	next, err := fn(*s.state)
	if err != nil {
		cur := *s.state
		s.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return cur, nil
		}
		return cur, err
	}
	next.UpdatedAt = s.now()
	s.state = &next
	listeners := make([]func(State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.persist(parts)
	for _, l := range listeners {
		l(next)
	}
	return next, nil
}

// persist writes the latest state, so concurrent commits cannot leave an older
// snapshot on disk.
func (s *Store) persist(parts part) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	st := s.Snapshot()
	var errs []error
	if parts&partBalances != 0 {
		errs = append(errs, s.local.SaveBalances(st.Balances))
	}
	if parts&partTransactions != 0 {
		errs = append(errs, s.local.SaveTransactions(st.Transactions))
	}
	if parts&partGoals != 0 {
		errs = append(errs, s.local.SaveGoals(st.Goals))
	}
	if parts&partCategories != 0 {
		errs = append(errs, s.local.SaveCategories(st.Categories))
	}
	if parts&partRates != 0 {
		errs = append(errs, s.local.SaveRates(st.Rates))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("persist budget state", "error", err)
	}
}

// nextLocalID returns a millisecond timestamp id, bumped when two writes land
// in the same millisecond.
func (s *Store) nextLocalID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// reject surfaces a validation error to the user and returns it.
func (s *Store) reject(err error) error {
	s.notifier.Notify(model.NotifyError, err.Error())
	return err
}

// SetRates replaces the exchange-rate table.
func (s *Store) SetRates(rates model.Rates) error {
	if len(rates) == 0 {
		return fmt.Errorf("%w: rates", ErrMissingField)
	}
	_, err := s.commit(partRates, func(st State) (State, error) {
		st.Rates = rates.Clone()
		return st, nil
	})
	return err
}
