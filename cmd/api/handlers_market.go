package main

import (
	"net/http"

	"marketmapper/business"
	"marketmapper/post"
)

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	items, err := s.businessService.ListByOwner(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	writeJSON(w, http.StatusOK, newList(mapSlice(items, newBusinessResponse)))
}

type businessRequest struct {
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Location    businessLocation  `json:"location"`
	Stats       businessStats     `json:"stats"`
	Resources   businessResources `json:"resources"`
}

func (s *Server) handleBusinessCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	var req businessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/businesses/new")
		return
	}
	b, err := s.businessService.Create(r.Context(), userID, business.CreateParams{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Location:    business.Location{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng},
		Stats: business.Stats{
			EmployeeCount:   req.Stats.EmployeeCount,
			RevenueRange:    req.Stats.RevenueRange,
			YearsInBusiness: req.Stats.YearsInBusiness,
		},
		Resources: business.Resources{POS: req.Resources.POS, HasDelivery: req.Resources.HasDelivery},
	})
	if err != nil {
		s.writeError(w, r, err, "/businesses/new")
		return
	}
	writeJSON(w, http.StatusCreated, newBusinessResponse(b))
}

func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "businessID")
	if err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	b, err := s.businessService.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	writeJSON(w, http.StatusOK, newBusinessResponse(b))
}

func (s *Server) handleBusinessDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "businessID")
	if err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	if err := s.businessService.Delete(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err, "/profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.postService.Feed(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Search: feed.Search,
		Posts:  mapSlice(feed.Posts, newPostResponse),
		Users:  mapSlice(feed.Users, newSummaryResponse),
	})
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	posts, err := s.postService.ListByAuthor(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	writeJSON(w, http.StatusOK, newList(mapSlice(posts, newPostResponse)))
}

type postRequest struct {
	BusinessID string   `json:"businessId"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Images     []string `json:"images"`
}

func (s *Server) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	typ, err := post.ParseType(req.Type)
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	p, err := s.postService.Create(r.Context(), userID, post.CreateParams{
		BusinessID: req.BusinessID,
		Title:      req.Title,
		Content:    req.Content,
		Type:       typ,
		Images:     req.Images,
	})
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	writeJSON(w, http.StatusCreated, newPostResponse(p))
}

func (s *Server) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "postID")
	if err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	if err := s.postService.Delete(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err, "/community")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type voteRequest struct {
	Action string `json:"action"`
}

type voteResponse struct {
	Success  bool `json:"success"`
	NewScore int  `json:"newScore"`
}

func (s *Server) handlePostVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}
	score, err := s.postService.Vote(r.Context(), id, post.VoteAction(req.Action))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{Success: true, NewScore: score})
}

type analyzeRequest struct {
	Query string `json:"query"`
	Rerun bool   `json:"rerun"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	res, err := s.reportService.Analyze(r.Context(), userID, req.Query, req.Rerun)
	if err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	writeJSON(w, http.StatusOK, newAnalysisResponse(res))
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	reports, err := s.reportService.History(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	writeJSON(w, http.StatusOK, newList(mapSlice(reports, newReportResponse)))
}

// handleReportDelete removes a report of the signed-in user. Foreign or
// missing ids succeed without effect.
func (s *Server) handleReportDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}
	id, err := pathID(r, "reportID")
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.reportService.Delete(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err, "/dashboard")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
