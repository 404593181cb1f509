package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/identity"
	"github.com/MrEthical07/identity/middleware"
)

type registerResponse struct {
	identity.AccountView
	AccessToken string     `json:"access_token,omitempty"`
	TokenType   string     `json:"token_type,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
	identity.Claims
}

type statusRequest struct {
	Active *bool `json:"is_active"`
}

func bearer(r *http.Request) (string, error) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		return "", fmt.Errorf("%w: missing bearer token", identity.ErrUnauthorized)
	}
	return token, nil
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req identity.RegisterRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.svc.Register(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	resp := registerResponse{AccountView: res.Account}
	if res.Login != nil {
		resp.AccessToken = res.Login.Token
		resp.TokenType = res.Login.TokenType
		expires := res.Login.ExpiresAt
		resp.ExpiresAt = &expires
	}
	a.writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.svc.Logout(r.Context(), token); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	claims, err := a.svc.VerifyToken(r.Context(), token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, verifyResponse{Valid: true, Claims: *claims})
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	n, err := a.svc.LogoutAll(r.Context(), token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sessions, err := a.svc.ListSessions(r.Context(), token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []identity.SessionInfo{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	view, err := a.svc.Me(r.Context(), token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var update identity.ProfileUpdate
	if err := a.decode(w, r, &update); err != nil {
		a.writeError(w, r, err)
		return
	}
	view, err := a.svc.UpdateProfile(r.Context(), token, update)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	token, err := bearer(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))

	var req statusRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		a.writeError(w, r, &identity.ValidationError{Field: "is_active", Reason: "is required"})
		return
	}

	if err := a.svc.SetAccountActive(r.Context(), token, id, *req.Active); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": *req.Active})
}
