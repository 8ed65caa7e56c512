package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"userprofile-service/internal/application"
	"userprofile-service/internal/domain"
	"userprofile-service/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const idempotencyHeader = "X-Idempotency-Key"

type Server struct {
	svc  *application.UserService
	ping func(ctx context.Context) error
}

func NewServer(svc *application.UserService) *Server { return &Server{svc: svc} }

// SetReadyCheck installs the probe used by /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
}

type profileJSON struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

type userJSON struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"created_at"`
	Profile   *profileJSON  `json:"profile,omitempty"`
	Profiles  []profileJSON `json:"profiles,omitempty"`
}

type createUserResponse struct {
	User userJSON `json:"user"`
}

type workFailureResponse struct {
	Error       string    `json:"error"`
	UserCreated *userJSON `json:"user_created"`
	Cause       string    `json:"cause"`
}

type orphansResponse struct {
	Users []userJSON `json:"users"`
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) CreateUserNonTransactional(w http.ResponseWriter, r *http.Request) {
	s.createUser(w, r, s.svc.CreateUserWithProfileNonTransactional)
}

func (s *Server) CreateUserTransactional(w http.ResponseWriter, r *http.Request) {
	s.createUser(w, r, s.svc.CreateUserWithProfileTransactional)
}

type createFunc func(ctx context.Context, in application.CreateUserInput) (application.UserWithProfile, error)

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, create createFunc) {
	var body createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := domain.ValidateNewUser(domain.NewUser{Name: body.Name, Email: body.Email}); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	out, err := create(r.Context(), application.CreateUserInput{
		Name:           body.Name,
		Email:          body.Email,
		Bio:            body.Bio,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		var wf *application.WorkFailure
		switch {
		case errors.Is(err, application.ErrConflict):
			writeError(w, http.StatusConflict, "duplicate "+idempotencyHeader)
		case errors.As(err, &wf):
			resp := workFailureResponse{Error: wf.Message}
			if wf.Cause != nil {
				resp.Cause = wf.Cause.Error()
			}
			if wf.UserCreated != nil {
				u := toUserJSON(*wf.UserCreated)
				resp.UserCreated = &u
			}
			writeJSON(w, http.StatusInternalServerError, resp)
		default:
			logx.FromContext(r.Context()).Error("create_user_failed", zap.Error(err))
			internalError(w)
		}
		return
	}
	u := toUserJSON(out.User)
	p := toProfileJSON(out.Profile)
	u.Profile = &p
	writeJSON(w, http.StatusOK, createUserResponse{User: u})
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	d, err := s.svc.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			notFound(w)
			return
		}
		logx.FromContext(r.Context()).Error("get_user_failed", zap.Int64("user_id", id), zap.Error(err))
		internalError(w)
		return
	}
	u := toUserJSON(d.User)
	u.Profiles = make([]profileJSON, 0, len(d.Profiles))
	for _, p := range d.Profiles {
		u.Profiles = append(u.Profiles, toProfileJSON(p))
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) ListOrphans(w http.ResponseWriter, r *http.Request) {
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	users, err := s.svc.ListOrphans(r.Context(), limit)
	if err != nil {
		logx.FromContext(r.Context()).Error("list_orphans_failed", zap.Int("limit", limit), zap.Error(err))
		internalError(w)
		return
	}
	resp := orphansResponse{Users: make([]userJSON, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserJSON(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toUserJSON(u domain.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toProfileJSON(p domain.Profile) profileJSON {
	return profileJSON{ID: p.ID, UserID: p.UserID, Bio: p.Bio, CreatedAt: p.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Code: status, Message: msg})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
