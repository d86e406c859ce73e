package web

import (
	"net/http"
	"time"

	"kinesis/internal/application/orchestrators"
	"kinesis/internal/application/projections"
	planDomain "kinesis/internal/domain/plan"
)

type planView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Days      planDomain.Days `json:"days"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	CreatedBy string          `json:"created_by,omitempty"`
}

func viewPlan(p planDomain.Plan) planView {
	v := planView{
		ID:        p.ID,
		Name:      p.Name,
		Days:      p.Days,
		CreatedAt: p.CreatedAt,
		CreatedBy: p.CreatedBy,
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		v.UpdatedAt = &updated
	}
	return v
}

func viewPlans(plans []planDomain.Plan) []planView {
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, viewPlan(p))
	}
	return out
}

type planSummaryView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	DayCount   int        `json:"day_count"`
	EntryCount int        `json:"entry_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type planContentRequest struct {
	Name string               `json:"name"`
	Days planDomain.DaysInput `json:"days"`
}

// handlePlans handles GET (list) and POST (create from full content) for /api/plans
func handlePlans(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		result, err := projections.QueryGetPlanList(ctx, projections.GetPlanListDeps{PlanStore: stores.PlanStore})
		if err != nil {
			writeError(w, err)
			return
		}
		summaries := result.Summaries()
		out := make([]planSummaryView, 0, len(summaries))
		for _, s := range summaries {
			v := planSummaryView{
				ID:         s.ID,
				Name:       s.Name,
				DayCount:   s.DayCount,
				EntryCount: s.EntryCount,
				CreatedAt:  s.CreatedAt,
			}
			if !s.UpdatedAt.IsZero() {
				updated := s.UpdatedAt
				v.UpdatedAt = &updated
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req planContentRequest
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := orchestrators.ExecuteCreatePlan(ctx, orchestrators.SavePlanInput{
			Content: planDomain.Content{Name: req.Name, Days: req.Days.Days()},
			ActorID: sess.AccountID,
		}, savePlanDeps())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePlan handles GET and DELETE for /api/plans/{id}
func handlePlan(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		p, err := projections.QueryGetPlan(ctx, id, projections.GetPlanDeps{PlanStore: stores.PlanStore})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewPlan(p))

	case http.MethodDelete:
		err := orchestrators.ExecuteDeletePlan(ctx, orchestrators.DeletePlanInput{
			PlanID:  id,
			ActorID: sess.AccountID,
		}, orchestrators.DeletePlanDeps{
			PlanStore:     stores.PlanStore,
			OutboxStore:   stores.OutboxStore,
			PublishEvents: settings.PublishEvents,
			GenerateID:    generateID,
			Now:           timeNow,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleExercises handles GET /api/exercises
func handleExercises(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSession(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, planDomain.Catalog)
}

func savePlanDeps() orchestrators.SavePlanDeps {
	return orchestrators.SavePlanDeps{
		PlanStore:  stores.PlanStore,
		GenerateID: generateID,
		Now:        timeNow,
	}
}
