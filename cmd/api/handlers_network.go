package main

import (
	"context"
	"net/http"
)

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	graph, err := s.connectionService.Graph(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	writeJSON(w, http.StatusOK, newGraphResponse(graph))
}

// handleConnections lists accepted connections, optionally filtered by a
// case-insensitive username search.
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	users, err := s.connectionService.Connections(r.Context(), userID, r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, r, err, "/network")
		return
	}
	writeJSON(w, http.StatusOK, newList(mapSlice(users, newSummaryResponse)))
}

type connectionOp func(ctx context.Context, selfID, otherID string) error

func (s *Server) handleConnectionOp(op connectionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r)
		if err != nil {
			s.writeError(w, r, err, "/login")
			return
		}
		otherID, err := pathID(r, "userID")
		if err != nil {
			s.writeError(w, r, err, "/network")
			return
		}
		if err := op(r.Context(), userID, otherID); err != nil {
			s.writeError(w, r, err, "/network")
			return
		}
		graph, err := s.connectionService.Graph(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, err, "/network")
			return
		}
		writeJSON(w, http.StatusOK, newGraphResponse(graph))
	}
}

func (s *Server) handleConnectionRequest(w http.ResponseWriter, r *http.Request) {
	s.handleConnectionOp(s.connectionService.RequestConnection)(w, r)
}

func (s *Server) handleConnectionAccept(w http.ResponseWriter, r *http.Request) {
	s.handleConnectionOp(s.connectionService.AcceptConnection)(w, r)
}

func (s *Server) handleConnectionDecline(w http.ResponseWriter, r *http.Request) {
	s.handleConnectionOp(s.connectionService.DeclineConnection)(w, r)
}

func (s *Server) handleConnectionRemove(w http.ResponseWriter, r *http.Request) {
	s.handleConnectionOp(s.connectionService.RemoveConnection)(w, r)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	otherID, err := pathID(r, "userID")
	if err != nil {
		s.writeError(w, r, err, "/network")
		return
	}
	chat, err := s.messagingService.Chat(r.Context(), userID, otherID)
	if err != nil {
		s.writeError(w, r, err, "/network")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		With:     newSummaryResponse(chat.Other),
		Messages: mapSlice(chat.Messages, newMessageResponse),
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	otherID, err := pathID(r, "userID")
	if err != nil {
		s.writeError(w, r, err, "/network")
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/chat/"+otherID)
		return
	}
	msg, err := s.messagingService.Send(r.Context(), userID, otherID, req.Content)
	if err != nil {
		s.writeError(w, r, err, "/chat/"+otherID)
		return
	}
	writeJSON(w, http.StatusCreated, newMessageResponse(msg))
}
