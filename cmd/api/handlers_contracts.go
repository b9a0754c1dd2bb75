package main

import (
	"context"
	"net/http"

	"marketmapper/agreement"
)

func (s *Server) handleContractHub(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	hub, err := s.agreementService.Hub(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	writeJSON(w, http.StatusOK, newHubResponse(hub))
}

type proposeRequest struct {
	ReceiverID   string  `json:"receiverId"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	Deadline     string  `json:"deadline"`
	PaymentTerms string  `json:"paymentTerms"`
}

func (s *Server) handleContractPropose(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	var req proposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	receiverID, err := canonicalID(req.ReceiverID)
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	deadline, err := agreement.ParseDeadline(req.Deadline)
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	a, err := s.agreementService.Propose(r.Context(), userID, receiverID, agreement.ProposeParams{
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		Deadline:     deadline,
		PaymentTerms: req.PaymentTerms,
	})
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	writeJSON(w, http.StatusCreated, newAgreementResponse(a))
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "agreementID")
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	a, err := s.agreementService.Get(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	writeJSON(w, http.StatusOK, newAgreementResponse(a))
}

func (s *Server) handleContractHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "agreementID")
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	events, err := s.agreementService.History(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	writeJSON(w, http.StatusOK, newList(mapSlice(events, newEventResponse)))
}

type transitionFunc func(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error)

// handleTransition runs one lifecycle move for the signed-in user and
// returns the updated agreement.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, move transitionFunc) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "agreementID")
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	a, err := move(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	writeJSON(w, http.StatusOK, newAgreementResponse(a))
}

func (s *Server) handleContractAccept(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.agreementService.Accept)
}

func (s *Server) handleContractDecline(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.agreementService.Decline)
}

func (s *Server) handleContractComplete(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.agreementService.Complete)
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleContractDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/contracts")
		return
	}
	s.handleTransition(w, r, func(ctx context.Context, agreementID, actorID string) (agreement.Agreement, error) {
		return s.agreementService.Dispute(ctx, agreementID, actorID, req.Reason)
	})
}
