package export

import "github.com/dgrantham/chexport/internal/registry"

// Columns is the fixed CSV header: company attributes first, officer
// attributes last. Consumers parse exports by this exact order and text, so
// it is a contract — do not reorder or rename.
var Columns = []string{
	"company_name",
	"company_number",
	"company_status",
	"company_type",
	"company_subtype",
	"dissolution_date",
	"incorporation_date",
	"removed_date",
	"registered_date",
	"nature_of_business",
	"registered_office_address",
	"director_name",
	"director_address",
	"director_nationality",
	"director_occupation",
	"director_role",
	"director_appointed_date",
	"director_resigned_date",
}

// Row flattens one company and at most one of its officers into a CSV
// record. A nil officer leaves the officer columns blank, which is how a
// company without officers still contributes exactly one row.
func Row(c registry.CompanyRecord, o *registry.OfficerRecord) []string {
	row := make([]string, 0, len(Columns))
	row = append(row,
		c.Name(),
		c.CompanyNumber,
		c.CompanyStatus,
		c.CompanyType,
		c.CompanySubtype,
		c.DissolutionDate(),
		c.IncorporationDate(),
		c.RemovedDate,
		c.RegisteredDate,
		c.NatureOfBusiness(),
		c.RegisteredOfficeAddress.String(),
	)
	if o == nil {
		return append(row, "", "", "", "", "", "", "")
	}
	return append(row,
		o.Name,
		o.Address.String(),
		o.Nationality,
		o.Occupation,
		o.OfficerRole,
		o.AppointedOn,
		o.ResignedOn,
	)
}
