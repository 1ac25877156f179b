package registry

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dgrantham/chexport/internal/logging"
)

// CompanyOfficers retrieves the full officer list for one company, ordered
// by appointment date, paginating until the server-reported total has been
// accumulated.
//
// Partial-failure policy: an empty, malformed or failed page terminates
// pagination early and returns whatever was accumulated so far. A company
// whose officers cannot be fetched exports as a company with no officers;
// it is never dropped and never fails the export. Context cancellation and
// a missing credential do propagate.
func (c *Client) CompanyOfficers(ctx context.Context, companyNumber string) ([]OfficerRecord, error) {
	logger := logging.FromContext(ctx)

	var officers []OfficerRecord
	for start := 0; ; start += pageSize {
		q := url.Values{}
		q.Set("items_per_page", strconv.Itoa(pageSize))
		q.Set("start_index", strconv.Itoa(start))
		q.Set("order_by", "appointed_on")
		q.Set("register_view", "false")

		var page officersPage
		err := c.call(ctx, http.MethodGet, "/company/"+url.PathEscape(companyNumber)+"/officers", q, nil, &page)
		if err != nil {
			if errors.Is(err, ErrNoAPIKey) {
				return nil, err
			}
			if ctx.Err() != nil {
				return officers, ctx.Err()
			}
			logger.Warn("officer page failed, keeping partial list",
				"company_number", companyNumber,
				"fetched", len(officers),
				"error", err,
			)
			return officers, nil
		}

		if len(page.Items) == 0 {
			return officers, nil
		}
		officers = append(officers, page.Items...)

		if len(officers) >= page.TotalCount {
			return officers, nil
		}
		if len(page.Items) < pageSize {
			// Short page ends pagination even if the reported total was
			// never reached.
			return officers, nil
		}
	}
}
