package web

import (
	"net/http"
	"strconv"
	"time"

	"kinesis/internal/domain/outbox"
)

type outboxEntryView struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func viewOutboxEntry(e outbox.Entry) outboxEntryView {
	v := outboxEntryView{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		last := e.LastAttemptedAt
		v.LastAttemptedAt = &last
	}
	return v
}

// handleAdminOutbox handles GET /api/admin/outbox: failed entries by
// default, or the pending queue with ?status=pending.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if stores.OutboxStore == nil {
		http.Error(w, "outbox is not configured", http.StatusNotFound)
		return
	}
	ctx := r.Context()

	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var entries []outbox.Entry
	var err error
	if r.URL.Query().Get("status") == "pending" {
		entries, err = stores.OutboxStore.ListPending(ctx, limit)
	} else {
		entries, err = stores.OutboxStore.ListFailed(ctx, limit)
	}
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]outboxEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewOutboxEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAdminOutboxAction handles POST /api/admin/outbox/{id}/{action} where
// action is retry or abandon.
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if settings.Outbox == nil {
		http.Error(w, "outbox is not configured", http.StatusNotFound)
		return
	}
	ctx := r.Context()
	entryID := r.PathValue("id")

	switch r.PathValue("action") {
	case "retry":
		if err := settings.Outbox.ProcessSingle(ctx, entryID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})

	case "abandon":
		if err := settings.Outbox.AbandonEntry(ctx, entryID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})

	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}
