package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"kinesis/internal/application/orchestrators"
	"kinesis/internal/application/projections"
	planDomain "kinesis/internal/domain/plan"
)

type draftView struct {
	Handle     string             `json:"handle"`
	PlanID     string             `json:"plan_id,omitempty"`
	Name       string             `json:"name"`
	CurrentDay int                `json:"current_day"`
	DayCount   int                `json:"day_count"`
	Days       planDomain.Days    `json:"days"`
	Rows       []planDomain.Entry `json:"rows"`
}

func viewDraft(handle string, ed *planDomain.Editor) draftView {
	rows := make([]planDomain.Entry, len(ed.Rows))
	copy(rows, ed.Rows)
	return draftView{
		Handle:     handle,
		PlanID:     ed.Draft.ID,
		Name:       ed.Draft.Name,
		CurrentDay: ed.Draft.CurrentDay,
		DayCount:   ed.Draft.Days.Count(),
		Days:       ed.Draft.Days.Clone(),
		Rows:       rows,
	}
}

// openDraft registers ed for the caller and writes the new draft.
func openDraft(w http.ResponseWriter, owner string, ed *planDomain.Editor) {
	handle, err := drafts.Open(owner, ed)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("plan_event", "event", "draft_opened", "handle", handle, "plan_id", ed.Draft.ID, "owner", owner)
	writeJSON(w, http.StatusCreated, viewDraft(handle, ed))
}

// handleNewDraft handles POST /api/drafts
func handleNewDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	openDraft(w, sess.AccountID, planDomain.NewEditor())
}

// handleEditPlan handles POST /api/plans/{id}/edit: it opens a draft holding
// a copy of the stored plan.
func handleEditPlan(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	p, err := projections.QueryGetPlan(r.Context(), r.PathValue("id"), projections.GetPlanDeps{PlanStore: stores.PlanStore})
	if err != nil {
		writeError(w, err)
		return
	}
	openDraft(w, sess.AccountID, planDomain.EditPlan(p))
}

// editDraft runs fn on the caller's draft and writes the resulting state.
func editDraft(w http.ResponseWriter, r *http.Request, fn func(*planDomain.Editor) error) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	handle := r.PathValue("handle")
	var view draftView
	err := drafts.With(handle, sess.AccountID, func(ed *planDomain.Editor) error {
		if err := fn(ed); err != nil {
			return err
		}
		view = viewDraft(handle, ed)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDraft handles GET (view) and DELETE (discard) for /api/drafts/{handle}
func handleDraft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		editDraft(w, r, func(*planDomain.Editor) error { return nil })

	case http.MethodDelete:
		sess, ok := requireAdmin(w, r)
		if !ok {
			return
		}
		if !drafts.Discard(r.PathValue("handle"), sess.AccountID) {
			writeError(w, ErrDraftNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type addDayRequest struct {
	Switch bool `json:"switch"`
}

// handleDraftAddDay handles POST /api/drafts/{handle}/days. The new day only
// becomes current when the body asks for {"switch": true}.
func handleDraftAddDay(w http.ResponseWriter, r *http.Request) {
	var req addDayRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	editDraft(w, r, func(ed *planDomain.Editor) error {
		if req.Switch {
			_, err := ed.AddDayAndSwitch()
			return err
		}
		_, err := ed.Draft.AddDay()
		return err
	})
}

type switchDayRequest struct {
	Day int `json:"day"`
}

// handleDraftSwitch handles POST /api/drafts/{handle}/switch
func handleDraftSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchDayRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	editDraft(w, r, func(ed *planDomain.Editor) error {
		return ed.SwitchDay(req.Day)
	})
}

type setRowsRequest struct {
	Name *string    `json:"name"`
	Rows []planDomain.EntryInput `json:"rows"`
}

// handleDraftRows handles PUT (replace the form state) and POST (append a
// blank row) for /api/drafts/{handle}/rows
func handleDraftRows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req setRowsRequest
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		rows := make([]planDomain.Entry, 0, len(req.Rows))
		for _, in := range req.Rows {
			rows = append(rows, in.Entry())
		}
		editDraft(w, r, func(ed *planDomain.Editor) error {
			if req.Name != nil {
				ed.Draft.Name = *req.Name
			}
			ed.SetRows(rows)
			return nil
		})

	case http.MethodPost:
		editDraft(w, r, func(ed *planDomain.Editor) error {
			ed.AddRow()
			return nil
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleDraftRemoveRow handles DELETE /api/drafts/{handle}/rows/{index}
func handleDraftRemoveRow(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "row index must be a number", http.StatusBadRequest)
		return
	}
	editDraft(w, r, func(ed *planDomain.Editor) error {
		return ed.RemoveRow(index)
	})
}

type moveRequest struct {
	Day  int `json:"day"` // 0 = the day being edited
	From int `json:"from"`
	To   int `json:"to"`
}

// handleDraftMove handles POST /api/drafts/{handle}/move. Without a day, or
// with the current day, it moves an editable row; for any other day it moves
// the stored entry.
func handleDraftMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	editDraft(w, r, func(ed *planDomain.Editor) error {
		if req.Day == 0 || req.Day == ed.Draft.CurrentDay {
			return ed.MoveRow(req.From, req.To)
		}
		return ed.Draft.MoveEntry(req.Day, req.From, req.To)
	})
}

type saveDraftRequest struct {
	Name *string `json:"name"`
}

type saveDraftView struct {
	ID    string    `json:"id"`
	Draft draftView `json:"draft"`
}

// handleDraftSave handles POST /api/drafts/{handle}/save: it creates the plan
// for a new draft or overwrites the stored one, then resets the editor.
func handleDraftSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var req saveDraftRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	handle := r.PathValue("handle")
	var out saveDraftView
	err := drafts.With(handle, sess.AccountID, func(ed *planDomain.Editor) error {
		if req.Name != nil {
			ed.Draft.Name = *req.Name
		}
		id, err := orchestrators.ExecuteSavePlan(r.Context(), orchestrators.SavePlanInput{
			DraftID: ed.Draft.ID,
			Content: ed.Commit(),
			ActorID: sess.AccountID,
		}, savePlanDeps())
		if err != nil {
			return err
		}
		ed.Reset()
		out = saveDraftView{ID: id, Draft: viewDraft(handle, ed)}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
