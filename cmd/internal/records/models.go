// Package records serves the dashboard's read-only list, search and detail
// endpoints over evaluated companies and sales leads.
package records

import "time"

// Company is an evaluated company.
type Company struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Industry    string     `json:"industry"`
	Country     string     `json:"country"`
	Website     string     `json:"website"`
	Status      string     `json:"status"`
	Score       int        `json:"score"`
	EvaluatedAt *time.Time `json:"evaluatedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CompanyDetail is a company plus the number of leads attached to it.
type CompanyDetail struct {
	Company
	LeadCount int64 `json:"leadCount"`
}

// Lead is a sales lead belonging to one company.
type Lead struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	ContactName string    `json:"contactName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	ValueCents  int64     `json:"valueCents"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func newPage[T any](items []T, total int64, q Query) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	return Page[T]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize, TotalPages: pages}
}

// Totals are the record counts shown on the dashboard landing page.
type Totals struct {
	Companies     int64            `json:"companies"`
	Leads         int64            `json:"leads"`
	LeadsByStatus map[string]int64 `json:"leadsByStatus"`
}
