package cranker

import "github.com/krazyTry/honorary-quote-fee/distribution"

// DefaultPageSize keeps a page plus the creator transfer inside one
// transaction.
const DefaultPageSize = 8

// Planner splits an investor list into crank pages. The split must be
// stable for the whole day: a resumed run relies on page i being the same
// investors it was before.
type Planner struct {
	PageSize int
}

// Pages returns the investor list in pages of PageSize. An empty list is a
// single empty page so the day can still close and pay the creator.
func (p Planner) Pages(investors []distribution.InvestorRef) [][]distribution.InvestorRef {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if len(investors) == 0 {
		return [][]distribution.InvestorRef{nil}
	}
	pages := make([][]distribution.InvestorRef, 0, (len(investors)+size-1)/size)
	for start := 0; start < len(investors); start += size {
		end := min(start+size, len(investors))
		pages = append(pages, investors[start:end:end])
	}
	return pages
}
