package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/calyxlabs/accountkit/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
)

const authScheme = "JWT"

var studentNumber = regexp.MustCompile(`^[bmd]\d{7}$`)

type ctxKey int

const userKey ctxKey = 0

// Handler wires HTTP endpoints for the account lifecycle.
type Handler struct {
	logger    logging.Logger
	service   *Service
	validator *validator.Validate
	rateLimit int
}

func NewHandler(service *Service, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("student_number", func(fl validator.FieldLevel) bool {
		return studentNumber.MatchString(fl.Field().String())
	})
	return &Handler{logger: logger, service: service, validator: v, rateLimit: service.cfg.RateLimit}
}

// Routes returns the router serving every account endpoint.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	// separate budgets so failed logins cannot lock a client out of resets
	loginLimiter := h.limiter()
	resetLimiter := h.limiter()

	r.Post("/users/create/", h.createUser)
	r.Post("/users/activate/", h.activate)
	r.With(h.requireAuth).Get("/users/me/", h.me)
	r.With(h.requireAuth).Post("/password/", h.changePassword)
	r.With(resetLimiter).Post("/password/reset/", h.requestReset)
	r.Post("/password/reset/confirm/", h.confirmReset)
	r.With(loginLimiter).Post("/jwt/create/", h.login)
	return r
}

func (h *Handler) limiter() func(http.Handler) http.Handler {
	return httprate.Limit(h.rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
}

type activateForm struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordForm struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type resetForm struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmForm struct {
	UID         string `json:"uid" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type userBody struct {
	PK         int64    `json:"pk"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	ScreenName string   `json:"screenName"`
	GPA        *float64 `json:"gpa,omitempty"`
}

func newUserBody(u *User) userBody {
	return userBody{PK: u.ID, Username: u.Username, Email: u.Email, ScreenName: u.ScreenName, GPA: u.GPA}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if !h.decode(w, r, &in) {
		return
	}
	u, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserBody(u))
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	var in activateForm
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.Activate(r.Context(), in.UID, in.Token); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginForm
	if !h.decode(w, r, &in) {
		return
	}
	pair, err := h.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserBody(userFromContext(r.Context())))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordForm
	if !h.decode(w, r, &in) {
		return
	}
	u := userFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), u.ID, in.CurrentPassword, in.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var in resetForm
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.RequestReset(r.Context(), in.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmReset(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmForm
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.service.ConfirmReset(r.Context(), in.UID, in.Token, in.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
		if !found || scheme != authScheme || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}
		u, err := h.service.Authenticate(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func userFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// decode reads a JSON body into dst and validates it, answering 400 itself
// when either fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.fail(w, r, err)
			return false
		}
		fields := FieldErrors{}
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
		}
		writeJSON(w, http.StatusBadRequest, fields)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return "Ensure this field has at least " + fe.Param() + " characters."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "email":
		return "Enter a valid email address."
	case "gte":
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "lte":
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "student_number":
		return msgStudentNumber
	}
	return "Invalid value."
}

// fail maps service errors onto status codes and JSON bodies.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var fields FieldErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, fields)
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
	case errors.Is(err, ErrStaleToken):
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Stale token for given user."})
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "A server error occurred."})
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(started), "request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
