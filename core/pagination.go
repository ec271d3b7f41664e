package core

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type (
	// Page is the inbound pagination request, bound from the page and
	// pageSize query params.
	Page struct {
		Number int `json:"-"`
		Size   int `json:"-"`
	}

	// PageMeta is the pagination envelope metadata returned alongside lists.
	PageMeta struct {
		Page      int `json:"page"`
		PageSize  int `json:"pageSize"`
		Total     int `json:"total"`
		PageCount int `json:"pageCount"`
	}
)

func (p *Page) Clean() {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	} else if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func NewPageMeta(p Page, total int) PageMeta {
	count := total / p.Size
	if total%p.Size > 0 {
		count++
	}
	return PageMeta{Page: p.Number, PageSize: p.Size, Total: total, PageCount: count}
}
