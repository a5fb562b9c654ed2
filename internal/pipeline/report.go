package pipeline

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"tender/internal"
)

var OfferHeaders = []string{
	"Requested brand", "Requested article", "Match group", "Brand", "Article",
	"Description", "Requested quantity", "Availability", "Price", "Delivery time",
	"Warehouse", "Supplier code", "Supplier", "Profile",
}

var UnmatchedHeaders = []string{
	"Requested brand", "Requested article", "Requested quantity", "Comment",
}

// BuildReport orders offer rows by requested brand, requested article, match
// group, brand and article. The remaining columns break ties so that any
// permutation of the same rows sorts identically. Unmatched keep their order.
func BuildReport(rows []internal.ClassifiedRow, unmatched []internal.UnmatchedRequest) internal.Report {
	offers := slices.Clone(rows)
	slices.SortStableFunc(offers, compareRows)
	if offers == nil {
		offers = []internal.ClassifiedRow{}
	}
	if unmatched == nil {
		unmatched = []internal.UnmatchedRequest{}
	}
	return internal.Report{Offers: offers, Unmatched: unmatched}
}

func compareRows(a, b internal.ClassifiedRow) int {
	return cmp.Or(
		strings.Compare(a.RequestedBrand, b.RequestedBrand),
		strings.Compare(a.RequestedArticle, b.RequestedArticle),
		strings.Compare(string(a.MatchGroup), string(b.MatchGroup)),
		strings.Compare(a.Brand, b.Brand),
		strings.Compare(a.Article, b.Article),

		strings.Compare(a.Description, b.Description),
		strings.Compare(qtyKey(a.RequestedQuantity), qtyKey(b.RequestedQuantity)),
		strings.Compare(a.Availability, b.Availability),
		strings.Compare(a.Price, b.Price),
		strings.Compare(a.DeliveryTime, b.DeliveryTime),
		strings.Compare(a.Warehouse, b.Warehouse),
		strings.Compare(a.SupplierCode, b.SupplierCode),
		strings.Compare(a.SupplierName, b.SupplierName),
		strings.Compare(a.ProfileLabel, b.ProfileLabel),
	)
}

// OfferRecord returns the row's cells in OfferHeaders order.
func OfferRecord(row internal.ClassifiedRow) []any {
	return []any{
		row.RequestedBrand,
		row.RequestedArticle,
		string(row.MatchGroup),
		row.Brand,
		row.Article,
		row.Description,
		quantityCell(row.RequestedQuantity),
		row.Availability,
		numericCell(row.Price),
		row.DeliveryTime,
		row.Warehouse,
		row.SupplierCode,
		row.SupplierName,
		row.ProfileLabel,
	}
}

// UnmatchedRecord returns the request's cells in UnmatchedHeaders order.
func UnmatchedRecord(u internal.UnmatchedRequest) []any {
	return []any{u.Brand, u.Article, quantityCell(u.Quantity), u.Reason}
}

func quantityCell(q *float64) any {
	if q == nil {
		return ""
	}
	return *q
}

// numericCell writes API numbers as spreadsheet numbers, anything else as text.
func numericCell(s string) any {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	return v
}
