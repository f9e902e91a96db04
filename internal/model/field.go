package model

// Field names one column of the canonical sale CSV.
type Field string

// Sale (market report) fields.
const (
	SaleYear    Field = "sale_year"
	SaleMonth   Field = "sale_month"
	SaleDay     Field = "sale_day"
	SaleTitle   Field = "sale_title"
	SaleHead    Field = "sale_head"
	SaleName    Field = "sale_name"
	SaleAddress Field = "sale_address"
	SalePO      Field = "sale_po"
	SaleCity    Field = "sale_city"
	SaleState   Field = "sale_state"
	SaleZip     Field = "sale_zip"
)

// Consignor (seller) fields.
const (
	ConsignorName    Field = "consignor_name"
	ConsignorAddress Field = "consignor_address"
	ConsignorCity    Field = "consignor_city"
	ConsignorState   Field = "consignor_state"
	ConsignorZip     Field = "consignor_zip"
)

// Buyer fields. Most reports never name the buyer.
const (
	BuyerName    Field = "buyer_name"
	BuyerAddress Field = "buyer_address"
	BuyerCity    Field = "buyer_city"
	BuyerState   Field = "buyer_state"
	BuyerZip     Field = "buyer_zip"
)

// Cattle (lot) fields.
const (
	CattleCattle    Field = "cattle_cattle"
	CattleHead      Field = "cattle_head"
	CattleAvgWeight Field = "cattle_avg_weight"
	CattlePriceCwt  Field = "cattle_price_cwt"
	CattlePrice     Field = "cattle_price"
)

// Header is the column order of every output CSV.
var Header = []Field{
	SaleYear, SaleMonth, SaleDay, SaleTitle, SaleHead,
	SaleName, SaleAddress, SalePO, SaleCity, SaleState, SaleZip,
	ConsignorName, ConsignorAddress, ConsignorCity, ConsignorState, ConsignorZip,
	BuyerName, BuyerAddress, BuyerCity, BuyerState, BuyerZip,
	CattleCattle, CattleHead, CattleAvgWeight, CattlePriceCwt, CattlePrice,
}

var knownFields = func() map[Field]bool {
	m := make(map[Field]bool, len(Header))
	for _, f := range Header {
		m[f] = true
	}
	return m
}()

// IsField reports whether name is one of the CSV columns.
func IsField(name string) bool {
	return knownFields[Field(name)]
}

// HeaderStrings returns Header as plain strings, e.g. for a CSV header row.
func HeaderStrings() []string {
	out := make([]string, len(Header))
	for i, f := range Header {
		out[i] = string(f)
	}
	return out
}
