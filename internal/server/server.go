package server

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/handler"
	"github.com/dukerupert/famfund/internal/middleware"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/push"
	"github.com/dukerupert/famfund/internal/rates"
	"github.com/dukerupert/famfund/internal/session"
	"github.com/dukerupert/famfund/internal/store"
	"github.com/dukerupert/famfund/internal/websocket"
)

// Deps are the app components the API serves. Push is nil when no VAPID keys
// are configured, and Offsite is nil without S3 settings.
type Deps struct {
	Local         *store.LocalStore
	Sessions      *session.Manager
	Budget        *budget.Store
	Rates         *rates.Service
	Notifications *notify.Center
	Push          *push.Service
	Offsite       *backup.Offsite
}

type Server struct {
	deps      Deps
	hub       *websocket.Hub
	sessionH  *handler.SessionHandler
	budgetH   *handler.BudgetHandler
	ratesH    *handler.RatesHandler
	settingsH *handler.SettingsHandler
	backupH   *handler.BackupHandler
	pushH     *handler.PushHandler
	logger    *slog.Logger
}

// New builds the API and subscribes the event hub to session, budget and
// notification changes.
func New(deps Deps, logger *slog.Logger) *Server {
	hub := websocket.NewHub(logger.With("component", "websocket"))

	s := &Server{
		deps:      deps,
		hub:       hub,
		sessionH:  handler.NewSessionHandler(deps.Sessions, logger.With("component", "session_handler")),
		budgetH:   handler.NewBudgetHandler(deps.Budget, logger.With("component", "budget_handler")),
		ratesH:    handler.NewRatesHandler(deps.Rates, deps.Budget, logger.With("component", "rates_handler")),
		settingsH: handler.NewSettingsHandler(deps.Local, deps.Notifications, hub, logger.With("component", "settings_handler")),
		backupH:   handler.NewBackupHandler(deps.Local, deps.Offsite, deps.Sessions, deps.Budget, deps.Notifications, logger.With("component", "backup_handler")),
		logger:    logger,
	}
	if deps.Push != nil {
		s.pushH = handler.NewPushHandler(deps.Local, deps.Push, logger.With("component", "push_handler"))
	}

	deps.Sessions.OnChange(func(c session.Change) {
		hub.Broadcast(websocket.NewMessage(websocket.TypeSession, c.Session))
	})
	deps.Budget.OnChange(func(st budget.State) {
		hub.Broadcast(websocket.NewMessage(websocket.TypeState, st))
	})
	deps.Notifications.OnEvent(func(e notify.Event) {
		hub.Broadcast(websocket.NewMessage(websocket.TypeNotification, e))
	})
	return s
}

// Hub returns the event hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// snapshot is what a newly connected client receives first.
func (s *Server) snapshot() []websocket.Message {
	msgs := []websocket.Message{
		websocket.NewMessage(websocket.TypeSession, s.deps.Sessions.Current()),
		websocket.NewMessage(websocket.TypeState, s.deps.Budget.Snapshot()),
	}
	for _, n := range s.deps.Notifications.Active() {
		msgs = append(msgs, websocket.NewMessage(websocket.TypeNotification, notify.Event{Action: notify.ActionShown, Notification: n}))
	}
	return msgs
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", websocket.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.snapshot))

	mux.HandleFunc("GET /api/session", s.sessionH.Get)
	mux.HandleFunc("POST /api/session/create", s.sessionH.Create)
	mux.HandleFunc("POST /api/session/join", s.sessionH.Join)
	mux.HandleFunc("POST /api/session/disconnect", s.sessionH.Disconnect)

	mux.HandleFunc("GET /api/state", s.budgetH.State)
	mux.HandleFunc("GET /api/balances", s.budgetH.Balances)
	mux.HandleFunc("GET /api/analytics", s.budgetH.Analytics)

	mux.HandleFunc("GET /api/transactions", s.budgetH.ListTransactions)
	mux.HandleFunc("POST /api/transactions", s.budgetH.AddTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.budgetH.DeleteTransaction)

	mux.HandleFunc("GET /api/goals", s.budgetH.ListGoals)
	mux.HandleFunc("POST /api/goals", s.budgetH.AddGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.budgetH.UpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.budgetH.DeleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/add-money", s.budgetH.AddMoney)

	mux.HandleFunc("GET /api/categories", s.budgetH.ListCategories)
	mux.HandleFunc("POST /api/categories", s.budgetH.AddCategory)
	mux.HandleFunc("PUT /api/categories/{id}/limit", s.budgetH.EditCategoryLimit)
	mux.HandleFunc("DELETE /api/categories/{id}", s.budgetH.DeleteCategory)

	mux.HandleFunc("GET /api/rates", s.ratesH.Get)
	mux.HandleFunc("POST /api/rates/refresh", s.ratesH.Refresh)
	mux.HandleFunc("GET /api/rates/convert", s.ratesH.Convert)

	mux.HandleFunc("GET /api/notifications", s.settingsH.ListNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.settingsH.DismissNotification)
	mux.HandleFunc("GET /api/settings/theme", s.settingsH.GetTheme)
	mux.HandleFunc("PUT /api/settings/theme", s.settingsH.UpdateTheme)

	mux.HandleFunc("POST /api/backup/export", s.backupH.Export)
	mux.HandleFunc("POST /api/backup/import", s.backupH.Import)
	mux.HandleFunc("POST /api/backup/offsite", s.backupH.Offsite)

	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
