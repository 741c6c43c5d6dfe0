package model

// Page bounds used by every list endpoint.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = 1_000_000
)

// Page is a normalized page request.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps raw page/per_page values into a usable request.  page
// defaults to 1 and is capped at MaxPage so Offset cannot overflow;
// per_page defaults to DefaultPerPage and never exceeds MaxPerPage.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPage {
		number = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Limit returns the SQL LIMIT for the page.
func (p Page) Limit() int { return p.PerPage }

// PageMeta describes a returned page.
type PageMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Meta builds the response metadata for a page given the total row count.
func (p Page) Meta(total int) PageMeta {
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return PageMeta{Page: p.Number, PerPage: p.PerPage, Total: total, TotalPages: pages}
}
