package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"kinesis/internal/adapters/http/middleware"
	"kinesis/internal/adapters/identity"
	"kinesis/internal/adapters/storage"
	"kinesis/internal/application/orchestrators"
	accountDomain "kinesis/internal/domain/account"
	assignmentDomain "kinesis/internal/domain/assignment"
	planDomain "kinesis/internal/domain/plan"
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptional is strictDecode for endpoints whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	if err := strictDecode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_error", "error", err.Error())
	}
}

// badRequestErrors are caller mistakes: the request can be fixed and resent.
var badRequestErrors = []error{
	planDomain.ErrEmptyName,
	planDomain.ErrNameTooLong,
	planDomain.ErrNoDays,
	planDomain.ErrTooManyDays,
	planDomain.ErrNonContiguous,
	planDomain.ErrEmptyEntryName,
	planDomain.ErrInvalidSets,
	planDomain.ErrInvalidReps,
	planDomain.ErrNegativeRest,
	planDomain.ErrNegativeWeight,
	planDomain.ErrCapacityExceeded,
	planDomain.ErrInvalidDay,
	planDomain.ErrNotAdjacent,
	planDomain.ErrEntryOutOfRange,
	planDomain.ErrMinimumOneEntry,
	accountDomain.ErrEmptyUsername,
	accountDomain.ErrUsernameTooLong,
	accountDomain.ErrInvalidUsername,
	accountDomain.ErrNameTooLong,
	accountDomain.ErrInvalidEmail,
	accountDomain.ErrEmptyPassword,
	accountDomain.ErrPasswordTooShort,
	assignmentDomain.ErrEmptyClient,
	assignmentDomain.ErrEmptyWorkout,
	orchestrators.ErrDraftHasID,
	orchestrators.ErrDraftMissingID,
	orchestrators.ErrPlanIDRequired,
	orchestrators.ErrNotClient,
	orchestrators.ErrPasswordFieldsEmpty,
	orchestrators.ErrNewPasswordSame,
	ErrTooManyDrafts,
}

// statusFor maps an application error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrators.ErrAlreadyAssigned), errors.Is(err, orchestrators.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, orchestrators.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, orchestrators.ErrCurrentPasswordWrong):
		return http.StatusForbidden
	case errors.Is(err, orchestrators.ErrTerminalEntry):
		return http.StatusConflict
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// writeError reports err with the status its kind maps to. Gateway and
// unknown errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		internalError(w, err)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// requireSession returns the caller's session or writes 401.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireAdmin returns the trainer's session or writes 401/403.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if sess.Role != accountDomain.RoleAdmin {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", accountDomain.RoleAdmin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionView struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

func viewSession(s middleware.Session) sessionView {
	return sessionView{AccountID: s.AccountID, Username: s.Username, Name: s.Name, Role: s.Role}
}

// handleLogin handles POST /login with a JSON body or form fields.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Username, result.Name, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, sessionView{
		AccountID: result.AccountID,
		Username:  result.Username,
		Name:      result.Name,
		Role:      result.Role,
	})
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		n := drafts.DiscardOwner(sess.AccountID)
		slog.Info("auth_event", "event", "logout", "username", sess.Username, "drafts_discarded", n)
	}
	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/me. The CSRF token for form posts travels in
// the X-CSRF-Token response header.
func handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if token := csrf.Token(r); token != "" {
		w.Header().Set("X-CSRF-Token", token)
	}
	writeJSON(w, http.StatusOK, viewSession(sess))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleChangePassword handles POST /api/me/password for any signed-in
// account. Other sessions of the account stay valid.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tokenView struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleToken handles POST /api/token: it issues a bearer token for the
// current session, for API clients that cannot hold a cookie.
func handleToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if settings.Tokens.Secret == "" {
		http.Error(w, "bearer tokens are not enabled", http.StatusNotImplemented)
		return
	}
	now := timeNow()
	token, err := settings.Tokens.Issue(sess.Username, sess.Role, now)
	if err != nil {
		internalError(w, err)
		return
	}
	ttl := settings.Tokens.TTL
	if ttl <= 0 {
		ttl = identity.DefaultTokenTTL
	}
	slog.Info("auth_event", "event", "token_issued", "username", sess.Username)
	writeJSON(w, http.StatusOK, tokenView{Token: token, TokenType: "Bearer", ExpiresAt: now.Add(ttl)})
}
