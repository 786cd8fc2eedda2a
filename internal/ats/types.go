package ats

import "time"

// Wire types for the ATS REST API. Field names follow the provider's
// camelCase JSON convention.

type SourceLocation struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Remote  bool   `json:"remote"`
}

type SourceSalary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Period   string  `json:"period"`
}

type SourceJob struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         string         `json:"status"`
	EmploymentType string         `json:"employmentType"`
	Seniority      string         `json:"seniority"`
	Location       SourceLocation `json:"location"`
	Salary         SourceSalary   `json:"salary"`
	// Structured lists. When the provider sends only free text in
	// Description, these arrive empty and are extracted locally.
	Responsibilities []string   `json:"responsibilities"`
	Requirements     []string   `json:"requirements"`
	Skills           []string   `json:"skills"`
	PostedAt         *time.Time `json:"postedAt"`
	UpdatedAt        *time.Time `json:"updatedAt"`
}

type SourceCandidate struct {
	ID        string         `json:"id"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Headline  string         `json:"headline"`
	Summary   string         `json:"summary"`
	Skills    []string       `json:"skills"`
	Status    string         `json:"status"`
	Consent   *SourceConsent `json:"consent"`
	UpdatedAt *time.Time     `json:"updatedAt"`
}

// SourceConsent mirrors the processing consent recorded in the ATS.
// A nil block on the candidate reads as consent never given.
type SourceConsent struct {
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"grantedAt"`
	RevokedAt *time.Time `json:"revokedAt"`
}

type SourceResume struct {
	URL        string     `json:"url"`
	FileName   string     `json:"fileName"`
	UploadedAt *time.Time `json:"uploadedAt"`
}

type SourceExperience struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Current          bool     `json:"current"`
	Description      string   `json:"description"`
	Responsibilities []string `json:"responsibilities"`
	Achievements     []string `json:"achievements"`
}

type SourceEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartYear   string `json:"startYear"`
	EndYear     string `json:"endYear"`
}

type SourcePlacement struct {
	ID        string `json:"id"`
	JobTitle  string `json:"jobTitle"`
	Company   string `json:"company"`
	Status    string `json:"status"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type WebhookSubscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
}

// CandidateBundle is a candidate with its independently fetched
// sub-resources. Any sub-resource may be missing after a partial fetch.
type CandidateBundle struct {
	Candidate  SourceCandidate
	Resume     *SourceResume
	Experience []SourceExperience
	Education  []SourceEducation
	Placements []SourcePlacement
}

// PageMeta is the pagination envelope returned by list endpoints.
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasMore reports whether further pages exist.
func (m PageMeta) HasMore() bool {
	return m.Page < m.TotalPages
}

// ListOptions control pagination and delta filtering on list endpoints.
type ListOptions struct {
	Page         int
	PerPage      int
	UpdatedSince *time.Time
}
