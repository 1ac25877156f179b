package registry

import "strings"

// Address is the structured address shape shared by companies (registered
// office) and officers (service address). All components are optional.
type Address struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// String flattens the address to a single comma-joined line, emitting only
// the components that are present, in a fixed order. An empty address
// produces an empty string.
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.AddressLine1, a.AddressLine2, a.Locality, a.Region, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CompanyRecord is one company as returned by the registry's search
// endpoints. The two search endpoints disagree on some field names, so the
// accessor methods below paper over the differences.
type CompanyRecord struct {
	CompanyNumber  string `json:"company_number"`
	CompanyName    string `json:"company_name"`
	Title          string `json:"title"` // simple search reports the name here
	CompanyStatus  string `json:"company_status"`
	CompanyType    string `json:"company_type"`
	CompanySubtype string `json:"company_subtype"`

	// Cessation is reported as date_of_cessation by search responses and as
	// dissolution_date by some profile shapes; same for creation.
	DateOfCessation  string `json:"date_of_cessation"`
	AltDissolution   string `json:"dissolution_date"`
	DateOfCreation   string `json:"date_of_creation"`
	AltIncorporation string `json:"incorporation_date"`

	RemovedDate    string `json:"removed_date"`
	RegisteredDate string `json:"registered_date"`

	SicCodes                []string `json:"sic_codes"`
	RegisteredOfficeAddress Address  `json:"registered_office_address"`
}

// Name returns the company name regardless of which endpoint produced the
// record.
func (c CompanyRecord) Name() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Title
}

// DissolutionDate returns the cessation date under either wire name.
func (c CompanyRecord) DissolutionDate() string {
	if c.DateOfCessation != "" {
		return c.DateOfCessation
	}
	return c.AltDissolution
}

// IncorporationDate returns the creation date under either wire name.
func (c CompanyRecord) IncorporationDate() string {
	if c.DateOfCreation != "" {
		return c.DateOfCreation
	}
	return c.AltIncorporation
}

// NatureOfBusiness returns the SIC code list space-joined, the registry's
// conventional flat rendering.
func (c CompanyRecord) NatureOfBusiness() string {
	codes := make([]string, 0, len(c.SicCodes))
	for _, code := range c.SicCodes {
		if code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

// OfficerRecord is one officer (director or secretary) of a company.
type OfficerRecord struct {
	Name        string  `json:"name"`
	Address     Address `json:"address"`
	Nationality string  `json:"nationality"`
	Occupation  string  `json:"occupation"`
	OfficerRole string  `json:"officer_role"`
	AppointedOn string  `json:"appointed_on"`
	ResignedOn  string  `json:"resigned_on"`
}

// searchPage is one page of either search endpoint's response. The total
// field name varies by endpoint, and some responses omit it entirely, so
// both are pointers and callers consult total().
type searchPage struct {
	Items        []CompanyRecord `json:"items"`
	TotalResults *int            `json:"total_results"`
	TotalCount   *int            `json:"total_count"`
}

// total reports the server-declared result count, if any.
func (p *searchPage) total() (int, bool) {
	if p.TotalResults != nil {
		return *p.TotalResults, true
	}
	if p.TotalCount != nil {
		return *p.TotalCount, true
	}
	return 0, false
}

// officersPage is one page of the officer-list endpoint's response.
type officersPage struct {
	Items      []OfficerRecord `json:"items"`
	TotalCount int             `json:"total_count"`
}
