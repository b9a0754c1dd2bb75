// Package profile assembles the dashboard and public profile pages and
// computes the reputation score shown on both.
package profile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"marketmapper/agreement"
	"marketmapper/auth"
	"marketmapper/business"
	"marketmapper/connection"
	"marketmapper/post"
	"marketmapper/report"
)

const (
	baseScore      = 25
	reportWeight   = 5
	contractWeight = 10
	maxScore       = 99
)

// Score is the reputation of a user with the given number of reports and
// agreements, capped at 99.
func Score(reports, contracts int) int {
	return min(maxScore, baseScore+reportWeight*reports+contractWeight*contracts)
}

// The interfaces below are the read sides of the domain services.

type Users interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
}

type Reports interface {
	History(ctx context.Context, authorID string) ([]report.Report, error)
	Count(ctx context.Context, authorID string) (int, error)
}

type Agreements interface {
	List(ctx context.Context, userID string) ([]agreement.Agreement, error)
	Count(ctx context.Context, userID string) (int, error)
}

type Businesses interface {
	ListByOwner(ctx context.Context, ownerID string) ([]business.Business, error)
}

type Posts interface {
	ListByAuthor(ctx context.Context, authorID string) ([]post.Post, error)
}

type Graphs interface {
	Graph(ctx context.Context, userID string) (connection.Graph, error)
}

// Dashboard is the signed-in user's home page.
type Dashboard struct {
	Reports     []report.Report
	Agreements  []agreement.Agreement
	Score       int
	ReportCount int
}

// Profile is a user's public page.
type Profile struct {
	User       auth.Summary
	Businesses []business.Business
	Posts      []post.Post
	Graph      connection.Graph
	Score      int
}

type Service struct {
	users      Users
	reports    Reports
	agreements Agreements
	businesses Businesses
	posts      Posts
	graphs     Graphs
}

func NewService(users Users, reports Reports, agreements Agreements, businesses Businesses, posts Posts, graphs Graphs) *Service {
	return &Service{
		users:      users,
		reports:    reports,
		agreements: agreements,
		businesses: businesses,
		posts:      posts,
		graphs:     graphs,
	}
}

// Dashboard loads the reports and agreements of userID and scores them.
func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Reports, err = s.reports.History(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		d.Agreements, err = s.agreements.List(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.ReportCount = len(d.Reports)
	d.Score = Score(len(d.Reports), len(d.Agreements))
	return d, nil
}

// Profile loads the public page of userID. The user must exist; the
// remaining sections are fetched concurrently.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{User: u.Summary()}
	var reports, contracts int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p.Businesses, err = s.businesses.ListByOwner(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		p.Posts, err = s.posts.ListByAuthor(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		p.Graph, err = s.graphs.Graph(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		reports, err = s.reports.Count(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		contracts, err = s.agreements.Count(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	p.Score = Score(reports, contracts)
	return p, nil
}
