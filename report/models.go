package report

import "time"

// Report records a market analysis request in the user's history.
type Report struct {
	ID        string
	Title     string
	AuthorID  string
	Location  string
	CreatedAt time.Time
}

// Analysis is the structured market study returned by the analyst.
type Analysis struct {
	MarketScore           int                   `json:"market_score"`
	CompetitionLevel      string                `json:"competition_level"`
	TotalCompetitorsCount int                   `json:"total_competitors_count"`
	AverageMarketRating   float64               `json:"average_market_rating"`
	CenterCoords          Coords                `json:"center_coords"`
	Competitors           []Competitor          `json:"competitors"`
	AlternativeLocations  []AlternativeLocation `json:"alternative_locations"`
	GapAnalysis           string                `json:"gap_analysis"`
	SWOT                  SWOT                  `json:"swot"`
	SuggestedNames        []string              `json:"suggested_names"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Competitor struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type AlternativeLocation struct {
	Area   string `json:"area"`
	Reason string `json:"reason"`
}

type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Result is what one Analyze call produces. Report is nil for reruns.
type Result struct {
	Query    string
	Analysis Analysis
	Report   *Report
}
