package models

// Controller is one air-traffic-controller licensing row. The four
// expiry fields keep whatever the source spreadsheet carried: a numeric
// date serial, a date string, or free text.
type Controller struct {
	ID                    int64     `db:"id" json:"id"`
	FullName              string    `db:"full_name" json:"full_name"`
	DateOfBirth           string    `db:"date_of_birth" json:"date_of_birth"`
	LicenseNumber         string    `db:"license_number" json:"license_number"`
	Eligibility           string    `db:"eligibility" json:"eligibility"`
	Workplace             string    `db:"workplace" json:"workplace"`
	ATCOLicenseExpiry     CellValue `db:"atco_license_expiry" json:"atco_license_expiry"`
	UnitEndorsementExpiry CellValue `db:"unit_endorsement_expiry" json:"unit_endorsement_expiry"`
	ELPExpiry             CellValue `db:"elp_expiry" json:"elp_expiry"`
	MedicalExpiry         CellValue `db:"med_expiry" json:"med_expiry"`
}

// ExpiryField describes one of the four license columns.
type ExpiryField struct {
	Column string
	Label  string
	Value  func(*Controller) CellValue
}

// ExpiryFields lists the license columns in grid order. Statistics,
// coloring and reports all iterate this same set.
var ExpiryFields = []ExpiryField{
	{"atco_license_expiry", "ATCO License", func(c *Controller) CellValue { return c.ATCOLicenseExpiry }},
	{"unit_endorsement_expiry", "Unit Endorsement", func(c *Controller) CellValue { return c.UnitEndorsementExpiry }},
	{"elp_expiry", "Language Proficiency", func(c *Controller) CellValue { return c.ELPExpiry }},
	{"med_expiry", "Medical", func(c *Controller) CellValue { return c.MedicalExpiry }},
}

// ControllerPatch carries a partial field set for create and update.
// Fields left nil stay untouched on update. Unknown JSON keys are
// rejected at decode time, so the store only ever sees this fixed
// column set.
type ControllerPatch struct {
	FullName              *string    `json:"full_name"`
	DateOfBirth           *string    `json:"date_of_birth"`
	LicenseNumber         *string    `json:"license_number"`
	Eligibility           *string    `json:"eligibility"`
	Workplace             *string    `json:"workplace"`
	ATCOLicenseExpiry     *CellValue `json:"atco_license_expiry"`
	UnitEndorsementExpiry *CellValue `json:"unit_endorsement_expiry"`
	ELPExpiry             *CellValue `json:"elp_expiry"`
	MedicalExpiry         *CellValue `json:"med_expiry"`
}

// Columns returns the set columns and their values in declaration
// order, ready for parameterized INSERT/UPDATE clauses.
func (p *ControllerPatch) Columns() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(name string, v any) {
		cols = append(cols, name)
		vals = append(vals, v)
	}
	if p.FullName != nil {
		add("full_name", *p.FullName)
	}
	if p.DateOfBirth != nil {
		add("date_of_birth", *p.DateOfBirth)
	}
	if p.LicenseNumber != nil {
		add("license_number", *p.LicenseNumber)
	}
	if p.Eligibility != nil {
		add("eligibility", *p.Eligibility)
	}
	if p.Workplace != nil {
		add("workplace", *p.Workplace)
	}
	if p.ATCOLicenseExpiry != nil {
		add("atco_license_expiry", *p.ATCOLicenseExpiry)
	}
	if p.UnitEndorsementExpiry != nil {
		add("unit_endorsement_expiry", *p.UnitEndorsementExpiry)
	}
	if p.ELPExpiry != nil {
		add("elp_expiry", *p.ELPExpiry)
	}
	if p.MedicalExpiry != nil {
		add("med_expiry", *p.MedicalExpiry)
	}
	return cols, vals
}

// IsEmpty reports whether no field is set.
func (p *ControllerPatch) IsEmpty() bool {
	cols, _ := p.Columns()
	return len(cols) == 0
}

// Apply overwrites exactly the set fields on an existing record.
func (p *ControllerPatch) Apply(c *Controller) {
	if p.FullName != nil {
		c.FullName = *p.FullName
	}
	if p.DateOfBirth != nil {
		c.DateOfBirth = *p.DateOfBirth
	}
	if p.LicenseNumber != nil {
		c.LicenseNumber = *p.LicenseNumber
	}
	if p.Eligibility != nil {
		c.Eligibility = *p.Eligibility
	}
	if p.Workplace != nil {
		c.Workplace = *p.Workplace
	}
	if p.ATCOLicenseExpiry != nil {
		c.ATCOLicenseExpiry = *p.ATCOLicenseExpiry
	}
	if p.UnitEndorsementExpiry != nil {
		c.UnitEndorsementExpiry = *p.UnitEndorsementExpiry
	}
	if p.ELPExpiry != nil {
		c.ELPExpiry = *p.ELPExpiry
	}
	if p.MedicalExpiry != nil {
		c.MedicalExpiry = *p.MedicalExpiry
	}
}
