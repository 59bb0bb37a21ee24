package records

// Companies is the evaluated-company resource.
var Companies = Resource{
	Table:   "companies",
	Columns: []string{"id", "name", "industry", "country", "website", "status", "score", "evaluated_at", "created_at"},
	Search:  []string{"name", "industry", "country", "website"},
	Filters: map[string]FilterField{
		"industry": {Column: "industry"},
		"status":   {Column: "status"},
		"country":  {Column: "country"},
		"name":     {Column: "name", Kind: FilterText},
	},
	Sorts: map[string]string{
		"name":        "name",
		"industry":    "industry",
		"country":     "country",
		"status":      "status",
		"score":       "score",
		"evaluatedAt": "evaluated_at",
		"createdAt":   "created_at",
	},
	DefaultSort: "createdAt",
}

// Leads is the sales-lead resource.
var Leads = Resource{
	Table:   "leads",
	Columns: []string{"id", "company_id", "contact_name", "email", "phone", "source", "status", "value_cents", "created_at"},
	Search:  []string{"contact_name", "email", "phone"},
	Filters: map[string]FilterField{
		"status":    {Column: "status"},
		"source":    {Column: "source"},
		"companyId": {Column: "company_id"},
		"email":     {Column: "email", Kind: FilterText},
	},
	Sorts: map[string]string{
		"contactName": "contact_name",
		"status":      "status",
		"source":      "source",
		"value":       "value_cents",
		"createdAt":   "created_at",
	},
	DefaultSort: "createdAt",
}
