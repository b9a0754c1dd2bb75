package business

import "time"

// Business is a company profile owned by one user.
type Business struct {
	ID          string
	OwnerID     string
	Name        string
	Category    string
	Description string
	Location    Location
	Stats       Stats
	Resources   Resources
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Location struct {
	Address string
	Lat     *float64
	Lng     *float64
}

type Stats struct {
	EmployeeCount   *int
	RevenueRange    string
	YearsInBusiness *int
}

// Resources describes the tooling a business already runs.
type Resources struct {
	POS         string
	HasDelivery string
}

// CreateParams holds the owner-supplied fields of a new business.
type CreateParams struct {
	Name        string
	Category    string
	Description string
	Location    Location
	Stats       Stats
	Resources   Resources
}
