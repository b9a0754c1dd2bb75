package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"marketmapper/apperr"
)

const sampleAnalysis = "```json\n" + `{
  "market_score": 72,
  "competition_level": "Medium",
  "total_competitors_count": 10,
  "average_market_rating": 4.1,
  "center_coords": {"lat": 23.0225, "lng": 72.5714},
  "competitors": [{"name": "Brew Lab", "rating": 4.5, "lat": 23.022, "lng": 72.571}],
  "alternative_locations": [{"area": "Prahlad Nagar", "reason": "Office crowd"}],
  "gap_analysis": "No specialty roaster nearby.",
  "swot": {"strengths": ["s"], "weaknesses": ["w"], "opportunities": ["o"], "threats": ["t"]},
  "suggested_names": ["Bean There", "Cup Theory"]
}` + "\n```"

func TestParseAnalysis(t *testing.T) {
	got, err := ParseAnalysis(sampleAnalysis)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Analysis{
		MarketScore:           72,
		CompetitionLevel:      "Medium",
		TotalCompetitorsCount: 10,
		AverageMarketRating:   4.1,
		CenterCoords:          Coords{Lat: 23.0225, Lng: 72.5714},
		Competitors:           []Competitor{{Name: "Brew Lab", Rating: 4.5, Lat: 23.022, Lng: 72.571}},
		AlternativeLocations:  []AlternativeLocation{{Area: "Prahlad Nagar", Reason: "Office crowd"}},
		GapAnalysis:           "No specialty roaster nearby.",
		SWOT:                  SWOT{Strengths: []string{"s"}, Weaknesses: []string{"w"}, Opportunities: []string{"o"}, Threats: []string{"t"}},
		SuggestedNames:        []string{"Bean There", "Cup Theory"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("analysis mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseAnalysis("Sorry, I cannot help with that."); err == nil {
		t.Fatal("expected decode error for prose")
	}
}

func TestLocationOf(t *testing.T) {
	cases := map[string]string{
		"coffee shop in Surat": "Surat",
		"bakery":               "bakery",
		"   ":                  DefaultLocation,
	}
	for in, want := range cases {
		if got := LocationOf(in); got != want {
			t.Errorf("LocationOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPromptMentionsQueryAndShape(t *testing.T) {
	p := Prompt("cloud kitchen in Pune")
	for _, want := range []string{`"cloud kitchen in Pune"`, "market_score", "suggested_names", "RETURN JSON ONLY"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestService_AnalyzeStoresReport(t *testing.T) {
	repo := &fakeRepository{}
	analyst := &fakeAnalyst{text: sampleAnalysis}
	svc := NewService(repo, analyst, time.Second, nil, nil)

	res, err := svc.Analyze(context.Background(), "asha", "  coffee shop in Surat ", false)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Report == nil || res.Report.Title != "coffee shop in Surat" || res.Report.Location != "Surat" {
		t.Fatalf("unexpected report %+v", res.Report)
	}
	if res.Analysis.MarketScore != 72 {
		t.Fatalf("market score = %d", res.Analysis.MarketScore)
	}
	if analyst.calls != 1 {
		t.Fatalf("analyst called %d times", analyst.calls)
	}
	if !analyst.hadDeadline {
		t.Fatal("analyst call must carry the configured timeout")
	}

	rerun, err := svc.Analyze(context.Background(), "asha", "coffee shop in Surat", true)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if rerun.Report != nil || len(repo.reports) != 1 {
		t.Fatal("a rerun must not store another report")
	}
}

func TestService_AnalyzeFailures(t *testing.T) {
	cases := []struct {
		name    string
		analyst *fakeAnalyst
	}{
		{"model error", &fakeAnalyst{err: errors.New("quota exceeded")}},
		{"not json", &fakeAnalyst{text: "I think a cafe is a great idea!"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepository{}
			svc := NewService(repo, tc.analyst, 0, nil, nil)
			_, err := svc.Analyze(context.Background(), "asha", "salon in Vadodara", false)
			if !errors.Is(err, ErrAnalysisFailed) || !errors.Is(err, apperr.ErrExternal) {
				t.Fatalf("expected external analysis failure, got %v", err)
			}
			if tc.analyst.calls != 1 {
				t.Fatalf("expected a single attempt, got %d", tc.analyst.calls)
			}
			if len(repo.reports) != 1 {
				t.Fatal("the report is kept even when the analysis fails")
			}
		})
	}

	svc := NewService(&fakeRepository{}, Unavailable{}, 0, nil, nil)
	if _, err := svc.Analyze(context.Background(), "asha", "gym in Surat", false); !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("unconfigured analyst: expected ErrAnalysisFailed, got %v", err)
	}

	svc = NewService(&fakeRepository{}, &fakeAnalyst{}, 0, nil, nil)
	if _, err := svc.Analyze(context.Background(), "asha", " ", false); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestService_DeleteIsAuthorScoped(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewService(repo, &fakeAnalyst{text: sampleAnalysis}, 0, nil, nil)
	ctx := context.Background()

	res, err := svc.Analyze(ctx, "asha", "gym in Rajkot", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, res.Report.ID, "ravi"); err != nil {
		t.Fatalf("foreign delete must be silent, got %v", err)
	}
	if n, _ := svc.Count(ctx, "asha"); n != 1 {
		t.Fatal("foreign delete removed the report")
	}
	if err := svc.Delete(ctx, res.Report.ID, "asha"); err != nil {
		t.Fatal(err)
	}
	history, _ := svc.History(ctx, "asha")
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

type fakeAnalyst struct {
	text        string
	err         error
	calls       int
	hadDeadline bool
}

func (f *fakeAnalyst) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	return f.text, f.err
}

type fakeRepository struct {
	reports []Report
}

func (f *fakeRepository) Create(ctx context.Context, authorID, title, location string) (Report, error) {
	r := Report{ID: fmt.Sprintf("report-%d", len(f.reports)+1), Title: title, AuthorID: authorID, Location: location, CreatedAt: time.Now()}
	f.reports = append(f.reports, r)
	return r, nil
}

func (f *fakeRepository) ListByAuthor(ctx context.Context, authorID string) ([]Report, error) {
	out := []Report{}
	for i := len(f.reports) - 1; i >= 0; i-- {
		if f.reports[i].AuthorID == authorID {
			out = append(out, f.reports[i])
		}
	}
	return out, nil
}

func (f *fakeRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	list, _ := f.ListByAuthor(ctx, authorID)
	return len(list), nil
}

func (f *fakeRepository) Delete(ctx context.Context, id, authorID string) error {
	for i, r := range f.reports {
		if r.ID == id && r.AuthorID == authorID {
			f.reports = append(f.reports[:i], f.reports[i+1:]...)
			return nil
		}
	}
	return nil
}
