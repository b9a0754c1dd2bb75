package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/business"
)

func newTestService() (*Service, *fakeRepository) {
	repo := newFakeRepository()
	businesses := fakeBusinesses{
		"biz-1": {ID: "biz-1", OwnerID: "asha", Name: "Chai Point"},
		"biz-2": {ID: "biz-2", OwnerID: "ravi", Name: "Print Hub"},
	}
	users := fakeUsers{"asha", "ashok", "ravi"}
	return NewService(repo, businesses, users), repo
}

func TestParseType(t *testing.T) {
	if got, err := ParseType(" case_study "); err != nil || got != TypeCaseStudy {
		t.Fatalf("ParseType = %q, %v", got, err)
	}
	if _, err := ParseType("RANT"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	base := CreateParams{BusinessID: "biz-1", Content: "Footfall doubles on weekends", Type: TypeInsight}

	with := func(mut func(*CreateParams)) CreateParams {
		p := base
		mut(&p)
		return p
	}
	cases := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{"empty content", with(func(p *CreateParams) { p.Content = "  " }), ErrMissingContent},
		{"long title", with(func(p *CreateParams) { p.Title = strings.Repeat("t", 121) }), ErrTooLong},
		{"long content", with(func(p *CreateParams) { p.Content = strings.Repeat("c", 5001) }), ErrTooLong},
		{"bad type", with(func(p *CreateParams) { p.Type = "RANT" }), ErrInvalidType},
		{"bad image", with(func(p *CreateParams) { p.Images = []string{"javascript:alert(1)"} }), ErrInvalidImage},
		{"unknown business", with(func(p *CreateParams) { p.BusinessID = "nope" }), apperr.ErrNotFound},
		{"foreign business", with(func(p *CreateParams) { p.BusinessID = "biz-2" }), ErrNotBusinessOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "asha", tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(repo.posts) != 0 {
		t.Fatal("rejected posts must not be stored")
	}

	title := strings.Repeat("é", 120)
	p, err := svc.Create(ctx, "asha", with(func(p *CreateParams) {
		p.Title = title
		p.Type = "tip"
		p.Images = []string{"https://cdn.example.com/a.png"}
	}))
	if err != nil {
		t.Fatalf("120 runes is within the limit: %v", err)
	}
	if p.Type != TypeTip || p.Upvotes != 0 || p.Downvotes != 0 {
		t.Fatalf("unexpected post %+v", p)
	}
}

func TestService_FeedSearch(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	repo.seed("asha", "Weekend footfall", "Crowds on Saturday")
	repo.seed("asha", "Supplier warning", "Late deliveries from the mill")
	repo.seed("ravi", "Print tips", "Use matte paper")

	all, err := svc.Feed(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Posts) != 3 || len(all.Users) != 0 {
		t.Fatalf("unfiltered feed = %d posts, %d users", len(all.Posts), len(all.Users))
	}
	if all.Posts[0].Title != "Print tips" {
		t.Fatalf("feed must be newest first, got %q", all.Posts[0].Title)
	}

	found, err := svc.Feed(ctx, "  ASH ")
	if err != nil {
		t.Fatal(err)
	}
	if found.Search != "ASH" {
		t.Fatalf("search = %q", found.Search)
	}
	if len(found.Users) != 2 {
		t.Fatalf("expected asha and ashok, got %+v", found.Users)
	}

	byContent, _ := svc.Feed(ctx, "MILL")
	if len(byContent.Posts) != 1 || byContent.Posts[0].Title != "Supplier warning" {
		t.Fatalf("content search = %+v", byContent.Posts)
	}
}

func TestService_DeleteAuthorOnly(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	id := repo.seed("asha", "Mine", "body")

	if err := svc.Delete(ctx, id, "ravi"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if err := svc.Delete(ctx, id, "asha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, id, "asha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Vote(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	id := repo.seed("asha", "Vote me", "body")

	steps := []struct {
		action VoteAction
		want   int
	}{
		{AddUp, 1},
		{AddUp, 2},
		{AddDown, 1},
		{RemoveUp, 0},
		{RemoveDown, 1},
		{RemoveDown, 1},
	}
	for i, st := range steps {
		got, err := svc.Vote(ctx, id, st.action)
		if err != nil {
			t.Fatalf("step %d %s: %v", i, st.action, err)
		}
		if got != st.want {
			t.Fatalf("step %d %s: score %d, want %d", i, st.action, got, st.want)
		}
	}

	if _, err := svc.Vote(ctx, id, "boost"); !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
	if _, err := svc.Vote(ctx, "missing", AddUp); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type fakeRepository struct {
	posts map[string]Post
	order []string
	clock time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{posts: make(map[string]Post), clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeRepository) seed(author, title, content string) string {
	p, _ := f.Create(context.Background(), author, CreateParams{Title: title, Content: content, Type: TypeInsight})
	return p.ID
}

func (f *fakeRepository) Create(ctx context.Context, authorID string, params CreateParams) (Post, error) {
	f.clock = f.clock.Add(time.Minute)
	p := Post{
		ID:               fmt.Sprintf("post-%d", len(f.order)+1),
		AuthorUserID:     authorID,
		AuthorBusinessID: params.BusinessID,
		Title:            params.Title,
		Content:          params.Content,
		Type:             params.Type,
		Images:           params.Images,
		CreatedAt:        f.clock,
	}
	f.posts[p.ID] = p
	f.order = append(f.order, p.ID)
	return p, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id string) (Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepository) List(ctx context.Context, search string) ([]Post, error) {
	out := []Post{}
	needle := strings.ToLower(search)
	for i := len(f.order) - 1; i >= 0; i-- {
		p, ok := f.posts[f.order[i]]
		if !ok {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	all, _ := f.List(ctx, "")
	out := []Post{}
	for _, p := range all {
		if p.AuthorUserID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeRepository) Vote(ctx context.Context, id string, up, down int) (Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	p.Upvotes = max(p.Upvotes+up, 0)
	p.Downvotes = max(p.Downvotes+down, 0)
	f.posts[id] = p
	return p, nil
}

type fakeBusinesses map[string]business.Business

func (f fakeBusinesses) GetByID(ctx context.Context, id string) (business.Business, error) {
	b, ok := f[id]
	if !ok {
		return business.Business{}, business.ErrNotFound
	}
	return b, nil
}

type fakeUsers []string

func (f fakeUsers) Search(ctx context.Context, term string, limit int) ([]auth.Summary, error) {
	out := []auth.Summary{}
	for _, name := range f {
		if strings.Contains(strings.ToLower(name), strings.ToLower(term)) && len(out) < limit {
			out = append(out, auth.Summary{ID: name, Username: name})
		}
	}
	return out, nil
}
