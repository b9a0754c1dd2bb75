package post

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/business"
)

const (
	maxTitleLen   = 120
	maxContentLen = 5000
	maxImages     = 10
	// feedUserLimit caps the users listed next to a search.
	feedUserLimit = 5
)

var (
	ErrNotFound         = apperr.New(apperr.ErrNotFound, "post: not found")
	ErrBusinessNotFound = apperr.New(apperr.ErrNotFound, "post: business not found")
	ErrNotAuthor        = apperr.New(apperr.ErrUnauthorized, "post: you do not have permission to delete this post")
	ErrNotBusinessOwner = apperr.New(apperr.ErrUnauthorized, "post: you can only post for your own businesses")
	ErrInvalidType      = apperr.New(apperr.ErrValidation, "post: unknown post type")
	ErrMissingContent   = apperr.New(apperr.ErrValidation, "post: content is required")
	ErrTooLong          = apperr.New(apperr.ErrValidation, "post: title or content is too long")
	ErrInvalidImage     = apperr.New(apperr.ErrValidation, "post: images must be http(s) URLs")
	ErrTooManyImages    = apperr.New(apperr.ErrValidation, "post: too many images")
	ErrInvalidVote      = apperr.New(apperr.ErrValidation, "post: unknown vote action")
)

// BusinessDirectory resolves the business a post is published under.
type BusinessDirectory interface {
	GetByID(ctx context.Context, id string) (business.Business, error)
}

// UserSearcher finds users whose username matches a term.
type UserSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]auth.Summary, error)
}

// Service exposes feed and post operations.
type Service struct {
	repo       Repository
	businesses BusinessDirectory
	users      UserSearcher
}

func NewService(repo Repository, businesses BusinessDirectory, users UserSearcher) *Service {
	return &Service{repo: repo, businesses: businesses, users: users}
}

// Create publishes a post for one of authorID's businesses. Vote counters
// always start at zero.
func (s *Service) Create(ctx context.Context, authorID string, params CreateParams) (Post, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Content = strings.TrimSpace(params.Content)
	if params.Content == "" {
		return Post{}, ErrMissingContent
	}
	if utf8.RuneCountInString(params.Title) > maxTitleLen || utf8.RuneCountInString(params.Content) > maxContentLen {
		return Post{}, ErrTooLong
	}
	t, err := ParseType(string(params.Type))
	if err != nil {
		return Post{}, err
	}
	params.Type = t
	if len(params.Images) > maxImages {
		return Post{}, ErrTooManyImages
	}
	for _, raw := range params.Images {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Post{}, ErrInvalidImage
		}
	}

	b, err := s.businesses.GetByID(ctx, params.BusinessID)
	if err != nil {
		return Post{}, err
	}
	if b.OwnerID != authorID {
		return Post{}, ErrNotBusinessOwner
	}
	return s.repo.Create(ctx, authorID, params)
}

// Feed lists posts newest first. With a search term the posts are filtered
// by title or content and up to five users with a matching name are added.
func (s *Service) Feed(ctx context.Context, search string) (Feed, error) {
	search = strings.TrimSpace(search)
	posts, err := s.repo.List(ctx, search)
	if err != nil {
		return Feed{}, err
	}
	feed := Feed{Search: search, Posts: posts, Users: []auth.Summary{}}
	if search != "" {
		if feed.Users, err = s.users.Search(ctx, search, feedUserLimit); err != nil {
			return Feed{}, err
		}
	}
	return feed, nil
}

// ListByAuthor returns the posts written by authorID.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// Delete removes a post. Only its author may delete it.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorUserID != actorID {
		return ErrNotAuthor
	}
	return s.repo.Delete(ctx, id)
}

// Vote applies action to the post's counters and returns the new net score.
func (s *Service) Vote(ctx context.Context, id string, action VoteAction) (int, error) {
	up, down, ok := action.deltas()
	if !ok {
		return 0, ErrInvalidVote
	}
	p, err := s.repo.Vote(ctx, id, up, down)
	if err != nil {
		return 0, err
	}
	return p.Score(), nil
}
