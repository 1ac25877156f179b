package registry

// search.go implements the search-strategy selection and the paginated
// company search.
//
// The registry exposes two search endpoints with different protocols and,
// annoyingly, different field names for the same concepts:
//
//   - simple search: GET /search/companies with q / items_per_page /
//     start_index query parameters; matches on name only.
//   - advanced search: POST /advanced-search/companies with a JSON body;
//     the page-size field is called size there, not items_per_page.
//
// Any criterion beyond a bare name forces the advanced endpoint. Some
// registry deployments reject POST on the advanced endpoint (405); whether
// that falls back to name-only search or fails the export is a deliberate
// configuration choice (Config.FallbackToNameSearch).

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dgrantham/chexport/internal/logging"
)

// SearchMode identifies which search protocol a filter set requires.
type SearchMode int

const (
	// ModeNameOnly uses the simple GET search endpoint.
	ModeNameOnly SearchMode = iota

	// ModeAdvanced uses the multi-criteria POST endpoint.
	ModeAdvanced
)

func (m SearchMode) String() string {
	if m == ModeAdvanced {
		return "advanced"
	}
	return "name-only"
}

// ModeFor selects the search mode for a filter set: advanced whenever any
// criterion beyond the name is present, name-only otherwise.
func ModeFor(f SearchFilter) SearchMode {
	if f.Advanced() {
		return ModeAdvanced
	}
	return ModeNameOnly
}

// advancedQuery is the advanced endpoint's request body. Criteria absent
// from the filters are omitted from the body entirely, not sent as empty
// values.
type advancedQuery struct {
	CompanyNameIncludes string   `json:"company_name_includes,omitempty"`
	CompanyStatus       []string `json:"company_status,omitempty"`
	CompanyType         []string `json:"company_type,omitempty"`
	SicCodes            []string `json:"sic_codes,omitempty"`
	Location            string   `json:"location,omitempty"`
	IncorporatedFrom    string   `json:"incorporated_from,omitempty"`
	IncorporatedTo      string   `json:"incorporated_to,omitempty"`

	// The advanced endpoint's own pagination field names.
	Size       int `json:"size"`
	StartIndex int `json:"start_index"`
}

// advancedBody assembles the POST body for one advanced-search page.
func advancedBody(f SearchFilter, start int) advancedQuery {
	q := advancedQuery{
		CompanyNameIncludes: f.CompanyName,
		Location:            f.Location,
		IncorporatedFrom:    f.IncorporatedFrom,
		IncorporatedTo:      f.IncorporatedTo,
		Size:                pageSize,
		StartIndex:          start,
	}
	if f.CompanyStatus != "" {
		q.CompanyStatus = []string{f.CompanyStatus}
	}
	if f.CompanyType != "" {
		q.CompanyType = []string{f.CompanyType}
	}
	q.SicCodes = f.sicList()
	return q
}

// SearchCompanies retrieves every company matching the filter set,
// paginating the selected endpoint to completion.
//
// Termination: the server-declared total (whichever field name it arrives
// under) has been reached, or a page comes back shorter than requested.
// Both checks are needed because some response shapes omit the total.
//
// A 405 from the advanced endpoint either restarts the search in name-only
// mode (when fallback is enabled and a name is present) or returns
// ErrAdvancedUnsupported; it is never conflated with "no matches".
func (c *Client) SearchCompanies(ctx context.Context, f SearchFilter) ([]CompanyRecord, error) {
	logger := logging.FromContext(ctx)
	mode := ModeFor(f)

	var companies []CompanyRecord
	start := 0
	for {
		page, err := c.searchPage(ctx, mode, f, start)
		if err != nil {
			if mode == ModeAdvanced && errors.Is(err, ErrMethodNotAllowed) {
				if c.fallback && f.CompanyName != "" {
					logger.Warn("advanced search unavailable, falling back to name-only search")
					mode = ModeNameOnly
					companies = companies[:0]
					start = 0
					continue
				}
				return nil, ErrAdvancedUnsupported
			}
			if errors.Is(err, ErrNoAPIKey) || ctx.Err() != nil {
				return nil, err
			}
			// Remote failure already logged by the gateway; the export is
			// best-effort, so stop paginating with what was accumulated.
			break
		}

		if len(page.Items) == 0 {
			break
		}
		companies = append(companies, page.Items...)

		if total, ok := page.total(); ok && total <= len(companies) {
			break
		}
		if len(page.Items) < pageSize {
			// Short page signals the last page even without a usable total.
			break
		}
		start += pageSize
	}

	return companies, nil
}

// searchPage fetches a single page in the given mode.
func (c *Client) searchPage(ctx context.Context, mode SearchMode, f SearchFilter, start int) (*searchPage, error) {
	var page searchPage
	switch mode {
	case ModeAdvanced:
		if err := c.call(ctx, http.MethodPost, "/advanced-search/companies", nil, advancedBody(f, start), &page); err != nil {
			return nil, err
		}
	default:
		q := url.Values{}
		q.Set("q", f.CompanyName)
		q.Set("items_per_page", strconv.Itoa(pageSize))
		q.Set("start_index", strconv.Itoa(start))
		if err := c.call(ctx, http.MethodGet, "/search/companies", q, nil, &page); err != nil {
			return nil, err
		}
	}
	return &page, nil
}
