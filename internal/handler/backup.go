package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
	"github.com/dukerupert/famfund/internal/session"
	"github.com/dukerupert/famfund/internal/store"
)

// PassphraseHeader carries the backup passphrase on import.
const PassphraseHeader = "X-Backup-Passphrase"

// maxBackupSize bounds an uploaded backup.
const maxBackupSize = 16 << 20

type BackupHandler struct {
	local    *store.LocalStore
	offsite  *backup.Offsite
	sessions *session.Manager
	budget   *budget.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewBackupHandler builds the backup endpoints. offsite may be nil.
func NewBackupHandler(local *store.LocalStore, offsite *backup.Offsite, sessions *session.Manager, b *budget.Store, notifier notify.Notifier, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{local: local, offsite: offsite, sessions: sessions, budget: b, notifier: notifier, logger: logger}
}

type exportRequest struct {
	Passphrase string `json:"passphrase"`
}

// Export handles POST /api/backup/export
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decode(w, r, &req) {
		return
	}
	data, err := backup.Export(h.local, req.Passphrase)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("export backup", "error", err)
		}
		writeDomainError(w, err, "failed to export backup")
		return
	}
	name := fmt.Sprintf("famfund-%s.bak", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /api/backup/import. The body is the raw backup file.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBackupSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read backup")
		return
	}
	n, err := backup.Import(h.local, data, r.Header.Get(PassphraseHeader))
	if err != nil {
		h.logger.Warn("import backup", "error", err)
		h.notifier.Notify(model.NotifyError, "Could not restore backup")
		writeDomainError(w, err, "failed to import backup")
		return
	}

	// The session reload rebinds the budget to the restored family, then the
	// budget picks up the restored collections.
	if err := h.sessions.Reload(); err != nil {
		h.logger.Error("reload session after import", "error", err)
	}
	if err := h.budget.Reload(); err != nil {
		h.logger.Error("reload budget after import", "error", err)
		writeError(w, http.StatusInternalServerError, "backup restored but reload failed")
		return
	}
	h.notifier.Notify(model.NotifySuccess, fmt.Sprintf("Restored %d values from backup", n))
	writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}

// Offsite handles POST /api/backup/offsite
func (h *BackupHandler) Offsite(w http.ResponseWriter, r *http.Request) {
	if h.offsite == nil {
		writeError(w, http.StatusServiceUnavailable, "offsite backup not configured")
		return
	}
	key, err := h.offsite.Upload(r.Context())
	if err != nil {
		h.logger.Error("offsite backup", "error", err)
		h.notifier.Notify(model.NotifyError, "Could not upload backup")
		writeError(w, http.StatusBadGateway, "failed to upload backup")
		return
	}
	h.notifier.Notify(model.NotifySuccess, "Backup uploaded")
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "uploadedAt": h.offsite.LastUpload()})
}
