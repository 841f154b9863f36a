package budget

import (
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/remote"
	"github.com/dukerupert/famfund/internal/session"
)

// Bind follows a session change: subscriptions for the previous family are torn
// down, and new ones are opened when the session targets the remote store.
func (s *Store) Bind(c session.Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	gen := s.generation.Add(1)
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil

	gw, familyID, ok := s.target.Target()
	if !ok {
		return
	}
	// A later session change may already have moved the target on.
	if c.Family != nil && familyID == c.Session.FamilyID {
		s.ApplyFamily(c.Family)
	}
	log := s.logger.With("family", familyID)

	// Callbacks from an older binding are dropped even if they race the unsubscribe.
	current := func() bool { return s.generation.Load() == gen }

	famSub, err := gw.SubscribeFamily(familyID, func(r remote.Result[*model.Family]) {
		if !current() {
			return
		}
		if !r.Success {
			log.Warn("family stream", "error", r.Error)
			return
		}
		s.ApplyFamily(r.Data)
	})
	if err != nil {
		s.subscribeFailed(err)
		return
	}
	s.subs = append(s.subs, famSub)

	txSub, err := gw.SubscribeTransactions(familyID, func(r remote.Result[[]model.Transaction]) {
		if !current() {
			return
		}
		if !r.Success {
			log.Warn("transactions stream", "error", r.Error)
			return
		}
		s.ApplyTransactions(r.Data)
	})
	if err != nil {
		s.subscribeFailed(err)
		return
	}
	s.subs = append(s.subs, txSub)

	goalSub, err := gw.SubscribeGoals(familyID, func(r remote.Result[[]model.Goal]) {
		if !current() {
			return
		}
		if !r.Success {
			log.Warn("goals stream", "error", r.Error)
			return
		}
		s.ApplyGoals(r.Data)
	})
	if err != nil {
		s.subscribeFailed(err)
		return
	}
	s.subs = append(s.subs, goalSub)
	log.Info("subscribed to family streams")
}

func (s *Store) subscribeFailed(err error) {
	s.logger.Warn("subscribe", "error", err)
	s.notifier.Notify(model.NotifyWarning, "Live family updates are unavailable")
}

// Close tears down any open subscriptions.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.generation.Add(1)
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// ApplyFamily replaces balances with the remote family's. Owners missing from
// the remote record read as zero.
func (s *Store) ApplyFamily(f *model.Family) {
	if f == nil {
		return
	}
	balances := model.NewBalances(s.local.Partners()...)
	for owner, amount := range f.Balances {
		balances[owner] = amount
	}
	s.commit(partBalances, func(st State) (State, error) {
		st.Balances = balances
		st.Tentative.Balances = false
		return st, nil
	})
}

// ApplyTransactions replaces the transaction list with a remote snapshot.
func (s *Store) ApplyTransactions(txs []model.Transaction) {
	list := make([]model.Transaction, len(txs))
	copy(list, txs)
	s.commit(partTransactions, func(st State) (State, error) {
		st.Transactions = list
		st.Tentative.Transactions = nil
		return st, nil
	})
}

// ApplyGoals replaces the goal list with a remote snapshot.
func (s *Store) ApplyGoals(goals []model.Goal) {
	list := make([]model.Goal, len(goals))
	copy(list, goals)
	s.commit(partGoals, func(st State) (State, error) {
		st.Goals = list
		st.Tentative.Goals = nil
		return st, nil
	})
}
