// Package listutil parses the query string of a paged list view and
// computes its pagination.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Query parameter names.
const (
	ParamPage    = "page"
	ParamPerPage = "per_page"
	ParamSort    = "sort"
	ParamDir     = "dir"
	ParamSearch  = "q"
)

// DefaultPerPage is the number of rows per page when none is requested.
const DefaultPerPage = 20

// MaxSearchLength bounds the free-text search kept from a request.
const MaxSearchLength = 100

// PerPageOptions are the page sizes a request may ask for.
var PerPageOptions = []int{10, 20, 50, 100}

// Spec declares what a list accepts: its sort keys and, per filter
// parameter, the allowed values.
type Spec struct {
	SortKeys []string
	Filters  map[string][]string
}

// ListParams is the parsed state of one list view.
type ListParams struct {
	Page    int // 1-indexed
	PerPage int
	Sort    string // empty for the store's default order
	Dir     string // "asc" or "desc"
	Search  string
	Filters map[string]string
}

// Parse reads list parameters from q, dropping anything spec does not allow.
// PRE: none
// POST: Page >= 1, PerPage is one of PerPageOptions, Dir is "asc" or "desc",
// Sort is empty or a declared key, each filter holds an allowed value
func Parse(q url.Values, spec Spec) ListParams {
	lp := ListParams{
		Page:    1,
		PerPage: DefaultPerPage,
		Dir:     "asc",
		Search:  truncate(strings.TrimSpace(q.Get(ParamSearch)), MaxSearchLength),
		Filters: map[string]string{},
	}
	if n, err := strconv.Atoi(q.Get(ParamPage)); err == nil && n > 1 {
		lp.Page = n
	}
	if n, err := strconv.Atoi(q.Get(ParamPerPage)); err == nil && slices.Contains(PerPageOptions, n) {
		lp.PerPage = n
	}
	if s := q.Get(ParamSort); slices.Contains(spec.SortKeys, s) {
		lp.Sort = s
	}
	if q.Get(ParamDir) == "desc" {
		lp.Dir = "desc"
	}
	for key, allowed := range spec.Filters {
		if v := q.Get(key); v != "" && slices.Contains(allowed, v) {
			lp.Filters[key] = v
		}
	}
	return lp
}

// Query encodes the parameters for page, leaving defaults out. Filters are
// written in key order so links are stable.
// POST: Parse(lp.Query(lp.Page), spec) == lp for parameters spec allows
func (lp ListParams) Query(page int) url.Values {
	q := url.Values{}
	if page > 1 {
		q.Set(ParamPage, strconv.Itoa(page))
	}
	if lp.PerPage > 0 && lp.PerPage != DefaultPerPage {
		q.Set(ParamPerPage, strconv.Itoa(lp.PerPage))
	}
	if lp.Sort != "" {
		q.Set(ParamSort, lp.Sort)
		if lp.Dir == "desc" {
			q.Set(ParamDir, "desc")
		}
	}
	if lp.Search != "" {
		q.Set(ParamSearch, lp.Search)
	}
	keys := make([]string, 0, len(lp.Filters))
	for k := range lp.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		q.Set(k, lp.Filters[k])
	}
	return q
}

// SortedBy returns the parameters for a click on the header of key: the
// first click sorts ascending, a second one flips the direction. The page
// resets to 1.
func (lp ListParams) SortedBy(key string) ListParams {
	next := lp
	next.Page = 1
	next.Sort, next.Dir = key, "asc"
	if lp.Sort == key && lp.Dir == "asc" {
		next.Dir = "desc"
	}
	return next
}

// PageInfo is the pagination of a list once its total is known.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination for total rows.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages, TotalPages >= 1
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the number of rows before the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow is the 1-indexed first row shown, 0 for an empty list.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-indexed last row shown.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// pageWindow is the number of page links shown around the current page.
const pageWindow = 5

// PageNumbers returns the page links to show, a window centred on the
// current page where the ends allow it.
func (p PageInfo) PageNumbers() []int {
	start := max(p.Page-pageWindow/2, 1)
	end := min(start+pageWindow-1, p.TotalPages)
	start = max(end-pageWindow+1, 1)

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// ShowPagination reports whether the list spans more than one page.
func (p PageInfo) ShowPagination() bool {
	return p.TotalPages > 1
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
