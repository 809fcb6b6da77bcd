package httptransport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"enroll/internal/flow"
	"enroll/internal/user"
	"enroll/pkg/domainerrors"
)

// RegisterHandler exposes the multi-step registration flow over HTTP. Step
// submissions are form-encoded, like the login pages that post them;
// responses are JSON for the rendering layer.
type RegisterHandler struct {
	flow     *flow.Coordinator
	users    user.Store
	notifier Notifier
	logger   *slog.Logger
}

// Notifier sends the post-registration emails. Failures are logged, never
// surfaced: the account already exists by the time a notification goes out.
type Notifier interface {
	SendVerifyEmail(ctx context.Context, u *user.User) error
	SendPasswordReset(ctx context.Context, u *user.User) error
}

func NewRegisterHandler(coordinator *flow.Coordinator, users user.Store, notifier Notifier, logger *slog.Logger) *RegisterHandler {
	return &RegisterHandler{flow: coordinator, users: users, notifier: notifier, logger: logger}
}

func (h *RegisterHandler) Register(r chi.Router) {
	r.Post("/register", h.handleBegin)
	r.Get("/register/{attemptID}/steps/{stepID}", h.handlePrepare)
	r.Post("/register/{attemptID}/steps/{stepID}", h.handleSubmit)
	r.Post("/password-reset", h.handlePasswordReset)
}

// handleBegin opens a new registration attempt positioned on the first step.
func (h *RegisterHandler) handleBegin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid form body"))
		return
	}

	att := &flow.Attempt{
		ID:        uuid.NewString(),
		LoginHint: r.PostForm.Get("login_hint"),
		ClientID:  r.PostForm.Get("client_id"),
	}
	if err := h.flow.Begin(r.Context(), att); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"attempt_id": att.ID,
		"step":       h.flow.FirstStep(),
	})
}

// handlePrepare returns the render context for the attempt's current step.
func (h *RegisterHandler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	att, err := h.flow.Load(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, err)
		return
	}
	att.RemoteIP = remoteIP(r)

	stepID := chi.URLParam(r, "stepID")
	rc, err := h.flow.Prepare(r.Context(), att, stepID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"step":   stepID,
		"render": rc,
	})
}

// handleSubmit validates one step. Field errors re-render the step with the
// scrubbed submission echoed back; completing the last step creates the
// account and reports its ID.
func (h *RegisterHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	att, err := h.flow.Load(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, err)
		return
	}
	att.RemoteIP = remoteIP(r)

	if err := r.ParseForm(); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid form body"))
		return
	}

	result, err := h.flow.Submit(r.Context(), att, chi.URLParam(r, "stepID"), flow.Submission(r.PostForm))
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Failed() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": result.FieldErrors,
			"echo":   result.Echo,
		})
		return
	}

	if result.Completed {
		h.sendVerifyEmail(r, result.UserID)
		writeJSON(w, http.StatusCreated, map[string]string{"user_id": result.UserID})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"next": result.Next})
}

// handlePasswordReset emails a reset link. The response is identical whether
// or not the address exists, so the endpoint cannot be used to probe accounts.
func (h *RegisterHandler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid form body"))
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	if email == "" {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "email is required"))
		return
	}

	u, err := h.users.GetByEmail(r.Context(), email)
	switch {
	case err == nil:
		if err := h.notifier.SendPasswordReset(r.Context(), u); err != nil {
			h.logger.ErrorContext(r.Context(), "password reset email failed",
				"user_id", u.ID,
				"error", err.Error(),
			)
		}
	case domainerrors.Is(err, domainerrors.CodeNotFound):
		// Fall through to the uniform response.
	default:
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RegisterHandler) sendVerifyEmail(r *http.Request, userID string) {
	ctx := r.Context()
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "load user for verification email failed",
			"user_id", userID,
			"error", err.Error(),
		)
		return
	}
	if err := h.notifier.SendVerifyEmail(ctx, u); err != nil {
		h.logger.ErrorContext(ctx, "verification email failed",
			"user_id", userID,
			"error", err.Error(),
		)
	}
}

// remoteIP extracts the caller's address for the bot-check verifier. The
// first X-Forwarded-For hop wins when a proxy sits in front.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
