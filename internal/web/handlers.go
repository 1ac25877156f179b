package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgrantham/chexport/internal/export"
	"github.com/dgrantham/chexport/internal/logging"
	"github.com/dgrantham/chexport/internal/registry"
)

// handleIndex serves the embedded search form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// healthResponse is the health probe body.
type healthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// handleHealth reports liveness and whether a registry credential is
// configured. Used by infrastructure, not by the pipeline.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:           "ok",
		APIKeyConfigured: s.registry.Configured(),
	})
}

// handleSearch runs an export for the submitted filters and streams the CSV
// back as a download. The request blocks for the duration of the export;
// closing the connection cancels the pipeline through the request context.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form data")
		return
	}
	filter := filterFromForm(r.Form)

	result, err := s.service.Export(r.Context(), filter)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			// Client went away mid-export; nothing left to respond to.
			logging.FromContext(r.Context()).Info("export aborted by client", "path", r.URL.Path)
			return
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.Write(result.Data)
}

// filterFromForm builds a SearchFilter from trimmed form fields. Blank
// fields stay unset so they are omitted from upstream queries.
func filterFromForm(form url.Values) registry.SearchFilter {
	get := func(key string) string {
		return strings.TrimSpace(form.Get(key))
	}
	return registry.SearchFilter{
		CompanyName:      get("company_name"),
		CompanyStatus:    get("company_status"),
		CompanyType:      get("company_type"),
		SICCodes:         get("sic_codes"),
		Location:         get("location"),
		IncorporatedFrom: get("incorporated_from"),
		IncorporatedTo:   get("incorporated_to"),
	}
}

// statusFor maps export errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrNoFilters):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNoCompanies),
		errors.Is(err, registry.ErrAdvancedUnsupported):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
