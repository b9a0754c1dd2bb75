package post

import (
	"fmt"
	"strings"
	"time"

	"marketmapper/auth"
)

// Type classifies a post in the community feed.
type Type string

const (
	TypeInsight     Type = "INSIGHT"
	TypeCaseStudy   Type = "CASE_STUDY"
	TypeWarning     Type = "WARNING"
	TypeQuestion    Type = "QUESTION"
	TypeResource    Type = "RESOURCE"
	TypeTip         Type = "TIP"
	TypeOpportunity Type = "OPPORTUNITY"
)

var types = []Type{TypeInsight, TypeCaseStudy, TypeWarning, TypeQuestion, TypeResource, TypeTip, TypeOpportunity}

// ParseType accepts a type name in any case.
func ParseType(s string) (Type, error) {
	want := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range types {
		if t == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Post is a feed entry published by a user on behalf of one of their
// businesses.
type Post struct {
	ID               string
	AuthorUserID     string
	AuthorUsername   string
	AuthorBusinessID string
	BusinessName     string
	Title            string
	Content          string
	Type             Type
	Upvotes          int
	Downvotes        int
	Images           []string
	ReputationScore  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Score is the net vote count shown next to a post.
func (p Post) Score() int {
	return p.Upvotes - p.Downvotes
}

// CreateParams are the author-supplied fields of a new post. Images are
// URLs produced by an upload service.
type CreateParams struct {
	BusinessID string
	Title      string
	Content    string
	Type       Type
	Images     []string
}

// Feed is the community page: posts plus, for a search, matching users.
type Feed struct {
	Search string
	Posts  []Post
	Users  []auth.Summary
}

// VoteAction adjusts one vote counter.
type VoteAction string

const (
	AddUp      VoteAction = "addUp"
	RemoveUp   VoteAction = "removeUp"
	AddDown    VoteAction = "addDown"
	RemoveDown VoteAction = "removeDown"
)

// deltas returns the change applied to the up and down counters.
func (a VoteAction) deltas() (up, down int, ok bool) {
	switch a {
	case AddUp:
		return 1, 0, true
	case RemoveUp:
		return -1, 0, true
	case AddDown:
		return 0, 1, true
	case RemoveDown:
		return 0, -1, true
	}
	return 0, 0, false
}
