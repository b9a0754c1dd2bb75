package profile

import (
	"context"
	"errors"
	"testing"

	"marketmapper/agreement"
	"marketmapper/apperr"
	"marketmapper/auth"
	"marketmapper/business"
	"marketmapper/connection"
	"marketmapper/post"
	"marketmapper/report"
)

func TestScore(t *testing.T) {
	cases := []struct {
		reports, contracts, want int
	}{
		{0, 0, 25},
		{1, 0, 30},
		{0, 1, 35},
		{3, 2, 60},
		{2, 7, 99},
		{100, 100, 99},
	}
	for _, tc := range cases {
		if got := Score(tc.reports, tc.contracts); got != tc.want {
			t.Errorf("Score(%d, %d) = %d, want %d", tc.reports, tc.contracts, got, tc.want)
		}
	}
}

type stubs struct {
	reports    []report.Report
	agreements []agreement.Agreement
	err        error
}

func (s stubs) GetUserByID(ctx context.Context, userID string) (auth.User, error) {
	if userID != "asha" {
		return auth.User{}, auth.ErrUserNotFound
	}
	return auth.User{ID: "asha", Username: "Asha", Email: "asha@example.com"}, nil
}

func (s stubs) History(ctx context.Context, authorID string) ([]report.Report, error) {
	return s.reports, s.err
}

func (s stubs) Count(ctx context.Context, id string) (int, error) {
	return len(s.reports), s.err
}

func (s stubs) List(ctx context.Context, userID string) ([]agreement.Agreement, error) {
	return s.agreements, s.err
}

func (s stubs) ListByOwner(ctx context.Context, ownerID string) ([]business.Business, error) {
	return []business.Business{{ID: "biz-1", OwnerID: ownerID}}, nil
}

func (s stubs) ListByAuthor(ctx context.Context, authorID string) ([]post.Post, error) {
	return []post.Post{{ID: "post-1"}, {ID: "post-2"}}, nil
}

func (s stubs) Graph(ctx context.Context, userID string) (connection.Graph, error) {
	return connection.Graph{Connections: []auth.Summary{{ID: "ravi"}}}, nil
}

// agreementCounter gives Count its agreement meaning; stubs.Count counts
// reports.
type agreementCounter struct{ stubs }

func (a agreementCounter) Count(ctx context.Context, userID string) (int, error) {
	return len(a.agreements), a.err
}

func newService(s stubs) *Service {
	return NewService(s, s, agreementCounter{s}, s, s, s)
}

func TestService_Dashboard(t *testing.T) {
	s := stubs{
		reports:    []report.Report{{ID: "r1"}, {ID: "r2"}},
		agreements: []agreement.Agreement{{ID: "a1"}},
	}
	d, err := newService(s).Dashboard(context.Background(), "asha")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.ReportCount != 2 || len(d.Agreements) != 1 || d.Score != 45 {
		t.Fatalf("unexpected dashboard %+v", d)
	}

	s.err = errors.New("db down")
	if _, err := newService(s).Dashboard(context.Background(), "asha"); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_Profile(t *testing.T) {
	s := stubs{
		reports:    []report.Report{{ID: "r1"}},
		agreements: []agreement.Agreement{{ID: "a1"}, {ID: "a2"}},
	}
	p, err := newService(s).Profile(context.Background(), "asha")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.User.Username != "Asha" || len(p.Businesses) != 1 || len(p.Posts) != 2 || len(p.Graph.Connections) != 1 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.Score != 50 {
		t.Fatalf("score = %d, want 50", p.Score)
	}

	if _, err := newService(s).Profile(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
