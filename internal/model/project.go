package model

import "time"

// Project is the persisted configuration of one revenue-sharing project.
type Project struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Roles    []Role    `json:"roles"`
	Expenses []Expense `json:"expenses"`
	FundingState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role returns the role with the given id and its position.
func (p *Project) Role(id string) (*Role, int) {
	for i := range p.Roles {
		if p.Roles[i].ID == id {
			return &p.Roles[i], i
		}
	}
	return nil, -1
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Roles = append([]Role(nil), p.Roles...)
	cp.Expenses = append([]Expense(nil), p.Expenses...)
	return &cp
}

// FundingSnapshot is one recorded point of a project's funding progress.
type FundingSnapshot struct {
	ProjectID     string    `json:"project_id"`
	FundingTotal  float64   `json:"funding_total"`
	FundingTarget float64   `json:"funding_target"`
	PercentFunded float64   `json:"percent_funded"`
	RecordedAt    time.Time `json:"recorded_at"`
}
