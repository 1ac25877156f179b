package registry

import "strings"

// SearchFilter holds the user-supplied search criteria. All fields are
// optional; an export requires at least one to be set. Values are expected
// to arrive already trimmed and are not mutated after construction.
type SearchFilter struct {
	CompanyName      string
	CompanyStatus    string
	CompanyType      string
	SICCodes         string // comma-separated as entered
	Location         string
	IncorporatedFrom string // ISO date, inclusive lower bound
	IncorporatedTo   string // ISO date, inclusive upper bound
}

// Empty reports whether no criterion at all was supplied.
func (f SearchFilter) Empty() bool {
	return f == SearchFilter{}
}

// Advanced reports whether any criterion beyond a bare name is present.
// Such filters can only be served by the advanced-search endpoint.
func (f SearchFilter) Advanced() bool {
	return f.CompanyStatus != "" ||
		f.CompanyType != "" ||
		f.SICCodes != "" ||
		f.Location != "" ||
		f.IncorporatedFrom != "" ||
		f.IncorporatedTo != ""
}

// sicList splits the comma-separated SIC input into clean individual codes.
func (f SearchFilter) sicList() []string {
	if f.SICCodes == "" {
		return nil
	}
	parts := strings.Split(f.SICCodes, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}
