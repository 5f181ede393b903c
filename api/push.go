package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// pushRegisterRequest is the payload accepted by the push registration endpoint.
type pushRegisterRequest struct {
	Token    string   `json:"token"`
	Roles    []string `json:"roles"`
	Platform string   `json:"platform"`
}

// pushRegisterResponse acknowledges a registration with the normalized role set
// that was stored.
type pushRegisterResponse struct {
	OK         bool     `json:"ok"`
	TokenSaved bool     `json:"tokenSaved"`
	Roles      []string `json:"roles"`
}

// RegisterPush handles POST /push/register.
func (a *API) RegisterPush(w http.ResponseWriter, r *http.Request) {
	// Parse the request body.
	var request pushRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse the request body")
		return
	}
	token := strings.TrimSpace(request.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}
	platform := request.Platform
	if platform == "" {
		platform = "web"
	}

	// Store the registration.
	roles, err := a.dispatcher.Register(r.Context(), token, request.Roles, platform, r.UserAgent())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pushRegisterResponse{OK: true, TokenSaved: true, Roles: roles})
}

// CountPushRegistrations handles GET /push/count.
func (a *API) CountPushRegistrations(w http.ResponseWriter, r *http.Request) {
	count, err := a.dispatcher.RegistrationCount(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
