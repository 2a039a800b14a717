package models

// Catalog identifies one of the two disjoint scoring catalogs.
type Catalog string

const (
	CatalogStudent Catalog = "STUDENT"
	CatalogStaff   Catalog = "STAFF"
)

// Valid reports whether the catalog is known.
func (c Catalog) Valid() bool {
	return c == CatalogStudent || c == CatalogStaff
}

// Criterion is a named rule with a signed point value. Positive points are a
// commendation, negative points a demerit.
type Criterion struct {
	Content          string  `json:"content"`
	Points           int     `json:"points"`
	AffectsMealCount bool    `json:"affects_meal_count"`
	Catalog          Catalog `json:"catalog"`
}

// IsCommendation reports whether recording the criterion adds merit.
func (c Criterion) IsCommendation() bool {
	return c.Points > 0
}
