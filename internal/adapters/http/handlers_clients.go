package web

import (
	"log/slog"
	"net/http"
	"time"

	"kinesis/internal/application/orchestrators"
	"kinesis/internal/application/projections"
	accountDomain "kinesis/internal/domain/account"
)

type clientView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

type createClientRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// handleClients handles GET (list) and POST (create) for /api/clients
func handleClients(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		clients, err := projections.QueryGetClientList(ctx, projections.GetClientListDeps{AccountStore: stores.AccountStore})
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]clientView, 0, len(clients))
		for _, c := range clients {
			out = append(out, clientView{ID: c.ID, Username: c.Username, Name: c.Name, Email: c.Email})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req createClientRequest
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		acct, err := orchestrators.ExecuteCreateClientAccount(ctx, orchestrators.CreateClientAccountInput{
			Username: req.Username,
			Name:     req.Name,
			Password: req.Password,
			Email:    req.Email,
		}, orchestrators.CreateClientAccountDeps{
			AccountStore: stores.AccountStore,
			Provisioner:  settings.Provisioner,
			EmailDomain:  settings.Tokens.Domain,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, clientView{ID: acct.ID, Username: acct.Username, Name: acct.Name, Email: acct.Email})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleDeleteClient handles DELETE /api/clients/{username}. The client's
// assignments go with it and its sessions are ended.
func handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()
	username := accountDomain.NormalizeUsername(r.PathValue("username"))

	acct, lookupErr := stores.AccountStore.GetByUsername(ctx, username)
	removed, err := orchestrators.ExecuteDeleteClientAccount(ctx, username, orchestrators.DeleteClientAccountDeps{
		AccountStore:    stores.AccountStore,
		AssignmentStore: stores.AssignmentStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if lookupErr == nil {
		if n := sessions.DeleteAccount(acct.ID); n > 0 {
			slog.Info("auth_event", "event", "sessions_revoked", "username", username, "count", n)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username, "assignments_removed": removed})
}

type assignRequest struct {
	ClientUsername string `json:"client_username"`
	WorkoutID      string `json:"workout_id"`
}

type assignmentView struct {
	ID             string    `json:"id"`
	ClientUsername string    `json:"client_username"`
	WorkoutID      string    `json:"workout_id"`
	AssignedAt     time.Time `json:"assigned_at"`
}

// handleAssign handles POST /api/assignments
func handleAssign(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a, err := orchestrators.ExecuteAssignPlan(r.Context(), orchestrators.AssignPlanInput{
		ClientUsername: req.ClientUsername,
		WorkoutID:      req.WorkoutID,
		ActorID:        sess.AccountID,
	}, orchestrators.AssignPlanDeps{
		AccountStore:    stores.AccountStore,
		PlanStore:       stores.PlanStore,
		AssignmentStore: stores.AssignmentStore,
		OutboxStore:     stores.OutboxStore,
		NotifyByEmail:   settings.NotifyByEmail,
		PublishEvents:   settings.PublishEvents,
		GenerateID:      generateID,
		Now:             timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignmentView{
		ID:             a.ID,
		ClientUsername: a.ClientUsername,
		WorkoutID:      a.WorkoutID,
		AssignedAt:     a.AssignedAt,
	})
}

func writeClientPlans(w http.ResponseWriter, r *http.Request, username string) {
	plans, err := projections.QueryGetClientPlans(r.Context(), username, projections.GetClientPlansDeps{
		AssignmentStore: stores.AssignmentStore,
		PlanStore:       stores.PlanStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPlans(plans))
}

// handleClientPlans handles GET /api/clients/{username}/plans
func handleClientPlans(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	writeClientPlans(w, r, accountDomain.NormalizeUsername(r.PathValue("username")))
}

// handleMyPlans handles GET /api/my/plans: the caller's assigned plans.
func handleMyPlans(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeClientPlans(w, r, sess.Username)
}
