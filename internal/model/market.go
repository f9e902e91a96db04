package model

// Market is the metadata for one auction website: where it lives, the file
// prefix used for its archive, and the sale barns it reports for.
type Market struct {
	SiteID    int
	Website   string
	Prefix    string
	Locations []SaleRecord
}

// URL returns the site's base URL.
func (m Market) URL() string {
	if m.Website == "" {
		return ""
	}
	return "http://" + m.Website + "/"
}

// Defaults returns the sale_* fields every report from this site starts
// with. Sites reporting for several barns have no single default.
func (m Market) Defaults() SaleRecord {
	if len(m.Locations) != 1 {
		return SaleRecord{}
	}
	return m.Locations[0].Clone()
}
