package main

import (
	"encoding/json"
	"time"

	"marketmapper/agreement"
	"marketmapper/auth"
	"marketmapper/business"
	"marketmapper/connection"
	"marketmapper/messaging"
	"marketmapper/post"
	"marketmapper/profile"
	"marketmapper/report"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Image     string `json:"image"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func newUserResponse(u auth.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Image: u.Image, CreatedAt: formatTime(u.CreatedAt)}
}

func newSummaryResponse(u auth.Summary) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Image: u.Image}
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type graphResponse struct {
	Pending     []userResponse `json:"pending"`
	Sent        []userResponse `json:"sent"`
	Connections []userResponse `json:"connections"`
}

func newGraphResponse(g connection.Graph) graphResponse {
	return graphResponse{
		Pending:     mapSlice(g.Pending, newSummaryResponse),
		Sent:        mapSlice(g.Sent, newSummaryResponse),
		Connections: mapSlice(g.Connections, newSummaryResponse),
	}
}

type messageResponse struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
}

func newMessageResponse(m messaging.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  formatTime(m.CreatedAt),
	}
}

type chatResponse struct {
	With     userResponse      `json:"with"`
	Messages []messageResponse `json:"messages"`
}

type agreementResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Deadline      string  `json:"deadline"`
	PaymentTerms  string  `json:"paymentTerms"`
	SenderID      string  `json:"senderId"`
	ReceiverID    string  `json:"receiverId"`
	Status        string  `json:"status"`
	DisputeReason string  `json:"disputeReason,omitempty"`
	DisputedAt    string  `json:"disputedAt,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func newAgreementResponse(a agreement.Agreement) agreementResponse {
	resp := agreementResponse{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Amount:        a.Amount,
		Deadline:      a.Deadline.Format(time.DateOnly),
		PaymentTerms:  a.PaymentTerms,
		SenderID:      a.SenderID,
		ReceiverID:    a.ReceiverID,
		Status:        string(a.Status),
		DisputeReason: a.DisputeReason,
		CreatedAt:     formatTime(a.CreatedAt),
		UpdatedAt:     formatTime(a.UpdatedAt),
	}
	if a.DisputedAt != nil {
		resp.DisputedAt = formatTime(*a.DisputedAt)
	}
	return resp
}

type hubResponse struct {
	ReceivedPending []agreementResponse `json:"receivedPending"`
	SentPending     []agreementResponse `json:"sentPending"`
	Active          []agreementResponse `json:"active"`
	Completed       []agreementResponse `json:"completed"`
	Disputed        []agreementResponse `json:"disputed"`
	Declined        []agreementResponse `json:"declined"`
}

func newHubResponse(h agreement.Hub) hubResponse {
	return hubResponse{
		ReceivedPending: mapSlice(h.ReceivedPending, newAgreementResponse),
		SentPending:     mapSlice(h.SentPending, newAgreementResponse),
		Active:          mapSlice(h.Active, newAgreementResponse),
		Completed:       mapSlice(h.Completed, newAgreementResponse),
		Disputed:        mapSlice(h.Disputed, newAgreementResponse),
		Declined:        mapSlice(h.Declined, newAgreementResponse),
	}
}

type eventResponse struct {
	Seq       int             `json:"seq"`
	Previous  string          `json:"previous,omitempty"`
	Next      string          `json:"next"`
	ActorID   string          `json:"actorId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

func newEventResponse(e agreement.Event) eventResponse {
	resp := eventResponse{
		Seq:       e.Seq,
		Next:      string(e.Next),
		ActorID:   e.ActorID,
		Payload:   e.Payload,
		CreatedAt: formatTime(e.CreatedAt),
	}
	if e.Previous != nil {
		resp.Previous = string(*e.Previous)
	}
	return resp
}

type businessLocation struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type businessStats struct {
	EmployeeCount   *int   `json:"employeeCount,omitempty"`
	RevenueRange    string `json:"revenueRange,omitempty"`
	YearsInBusiness *int   `json:"yearsInBusiness,omitempty"`
}

type businessResources struct {
	POS         string `json:"pos,omitempty"`
	HasDelivery string `json:"hasDelivery,omitempty"`
}

type businessResponse struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Location    businessLocation  `json:"location"`
	Stats       businessStats     `json:"stats"`
	Resources   businessResources `json:"resources"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

func newBusinessResponse(b business.Business) businessResponse {
	return businessResponse{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Name:        b.Name,
		Category:    b.Category,
		Description: b.Description,
		Location:    businessLocation{Address: b.Location.Address, Lat: b.Location.Lat, Lng: b.Location.Lng},
		Stats: businessStats{
			EmployeeCount:   b.Stats.EmployeeCount,
			RevenueRange:    b.Stats.RevenueRange,
			YearsInBusiness: b.Stats.YearsInBusiness,
		},
		Resources: businessResources{POS: b.Resources.POS, HasDelivery: b.Resources.HasDelivery},
		CreatedAt: formatTime(b.CreatedAt),
		UpdatedAt: formatTime(b.UpdatedAt),
	}
}

type postResponse struct {
	ID               string   `json:"id"`
	AuthorUserID     string   `json:"authorUserId"`
	AuthorUsername   string   `json:"authorUsername"`
	AuthorBusinessID string   `json:"authorBusinessId"`
	BusinessName     string   `json:"businessName"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Type             string   `json:"type"`
	Upvotes          int      `json:"upvotes"`
	Downvotes        int      `json:"downvotes"`
	Score            int      `json:"score"`
	Images           []string `json:"images"`
	ReputationScore  int      `json:"reputationScore"`
	CreatedAt        string   `json:"createdAt"`
}

func newPostResponse(p post.Post) postResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return postResponse{
		ID:               p.ID,
		AuthorUserID:     p.AuthorUserID,
		AuthorUsername:   p.AuthorUsername,
		AuthorBusinessID: p.AuthorBusinessID,
		BusinessName:     p.BusinessName,
		Title:            p.Title,
		Content:          p.Content,
		Type:             string(p.Type),
		Upvotes:          p.Upvotes,
		Downvotes:        p.Downvotes,
		Score:            p.Score(),
		Images:           images,
		ReputationScore:  p.ReputationScore,
		CreatedAt:        formatTime(p.CreatedAt),
	}
}

type feedResponse struct {
	Search string         `json:"search,omitempty"`
	Posts  []postResponse `json:"posts"`
	Users  []userResponse `json:"users"`
}

type reportResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Location  string `json:"location"`
	CreatedAt string `json:"createdAt"`
}

func newReportResponse(r report.Report) reportResponse {
	return reportResponse{ID: r.ID, Title: r.Title, Location: r.Location, CreatedAt: formatTime(r.CreatedAt)}
}

type analysisResponse struct {
	Query    string          `json:"query"`
	Analysis report.Analysis `json:"analysis"`
	Report   *reportResponse `json:"report,omitempty"`
}

func newAnalysisResponse(res report.Result) analysisResponse {
	resp := analysisResponse{Query: res.Query, Analysis: res.Analysis}
	if res.Report != nil {
		rep := newReportResponse(*res.Report)
		resp.Report = &rep
	}
	return resp
}

type dashboardResponse struct {
	Reports     []reportResponse    `json:"reports"`
	Agreements  []agreementResponse `json:"agreements"`
	Score       int                 `json:"score"`
	ReportCount int                 `json:"reportCount"`
}

func newDashboardResponse(d profile.Dashboard) dashboardResponse {
	return dashboardResponse{
		Reports:     mapSlice(d.Reports, newReportResponse),
		Agreements:  mapSlice(d.Agreements, newAgreementResponse),
		Score:       d.Score,
		ReportCount: d.ReportCount,
	}
}

type profileResponse struct {
	User       userResponse       `json:"user"`
	Businesses []businessResponse `json:"businesses"`
	Posts      []postResponse     `json:"posts"`
	Network    graphResponse      `json:"network"`
	Score      int                `json:"score"`
}

func newProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		User:       newSummaryResponse(p.User),
		Businesses: mapSlice(p.Businesses, newBusinessResponse),
		Posts:      mapSlice(p.Posts, newPostResponse),
		Network:    newGraphResponse(p.Graph),
		Score:      p.Score,
	}
}
