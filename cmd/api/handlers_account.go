package main

import (
	"net/http"

	"marketmapper/auth"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/signup")
		return
	}
	res, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, "/signup")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: res.Token, User: newUserResponse(res.User)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	res, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: res.Token, User: newUserResponse(res.User)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	user, err := s.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type updateMeRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	user, err := s.authService.UpdateUsername(r.Context(), userID, req.Username)
	if err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	dash, err := s.profileService.Dashboard(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/")
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(dash))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	p, err := s.profileService.Profile(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(p))
}
