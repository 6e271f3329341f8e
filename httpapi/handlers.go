package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	adminGate "github.com/MrEthical07/adminGate"
	"github.com/MrEthical07/adminGate/middleware"
	"github.com/MrEthical07/adminGate/session"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Gate is the subset of *adminGate.Gate the handlers drive.
type Gate interface {
	SubmitCredentials(ctx context.Context, email, password string) error
	VerifyCode(ctx context.Context, code string) error
	ResendCode(ctx context.Context) error
	Cancel(ctx context.Context) error
	Logout(ctx context.Context) error
	State(ctx context.Context) adminGate.State
	Session() *session.Credential
}

type Handler struct {
	gate     Gate
	validate *validator.Validate
	log      *zap.Logger
}

func NewHandler(gate Gate, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		gate:     gate,
		validate: validator.New(),
		log:      log,
	}
}

type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type lockResponse struct {
	Locked            bool       `json:"locked"`
	Attempts          int        `json:"attempts"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	UnlocksAt         *time.Time `json:"unlocks_at,omitempty"`
	RemainingSeconds  int        `json:"remaining_seconds"`
}

type stateResponse struct {
	Phase                 string        `json:"phase"`
	LockedOut             string        `json:"locked_out,omitempty"`
	Password              lockResponse  `json:"password"`
	Code                  lockResponse  `json:"code"`
	ResendCooldownSeconds int           `json:"resend_cooldown_seconds"`
	Message               string        `json:"message,omitempty"`
	User                  *userResponse `json:"user,omitempty"`
}

// verifyResponse is the only response that carries the session token: it goes to
// the caller that just proved the code.
type verifyResponse struct {
	stateResponse
	Token string `json:"token,omitempty"`
}

type sessionResponse struct {
	User     userResponse `json:"user"`
	IssuedAt time.Time    `json:"issued_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email" validate:"required,max=254"`
		Password string `json:"password" validate:"required,max=128"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.gate.SubmitCredentials(r.Context(), body.Email, body.Password); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeState(w, r)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code" validate:"required,max=12"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.gate.VerifyCode(r.Context(), body.Code); err != nil {
		writeFailure(w, err)
		return
	}
	resp := verifyResponse{stateResponse: toState(h.gate.State(r.Context()))}
	if cred := h.gate.Session(); cred != nil {
		resp.Token = cred.Token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.ResendCode(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeState(w, r)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Cancel(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeState(w, r)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r)
}

// Session describes the signed-in session behind the session guard. The token is
// never echoed back.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated", "Not signed in.")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		User:     toUser(cred.User),
		IssuedAt: cred.IssuedAt.UTC(),
	})
}

// Me serves the signed-in user behind the session guard.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthenticated", "Not signed in.")
		return
	}
	writeJSON(w, http.StatusOK, toUser(cred.User))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErr(w, http.StatusBadRequest, string(adminGate.KindValidation), "invalid body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.log.Debug("request validation failed", zap.Error(err))
		writeErr(w, http.StatusBadRequest, string(adminGate.KindValidation), "missing or oversized field")
		return false
	}
	return true
}

func (h *Handler) writeState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toState(h.gate.State(r.Context())))
}

func toState(st adminGate.State) stateResponse {
	out := stateResponse{
		Phase:                 string(st.Phase),
		LockedOut:             string(st.LockedOut),
		Password:              toLock(st.Password),
		Code:                  toLock(st.Code),
		ResendCooldownSeconds: st.ResendCooldownSeconds,
		Message:               st.Message,
	}
	if st.User != nil {
		u := toUser(*st.User)
		out.User = &u
	}
	return out
}

func toLock(l adminGate.LockInfo) lockResponse {
	out := lockResponse{
		Locked:            l.Locked,
		Attempts:          l.Attempts,
		AttemptsRemaining: l.AttemptsRemaining,
		RemainingSeconds:  l.RemainingSeconds,
	}
	if !l.UnlocksAt.IsZero() {
		at := l.UnlocksAt.UTC()
		out.UnlocksAt = &at
	}
	return out
}

func toUser(u session.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
