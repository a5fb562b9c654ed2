package pipeline

import (
	"fmt"
	"math/rand"
	"testing"

	"tender/internal"
)

func classified(reqBrand, reqArticle string, group internal.MatchGroup, brand, article, price string) internal.ClassifiedRow {
	return internal.ClassifiedRow{
		ExtractedRow: internal.ExtractedRow{
			RequestedBrand:   reqBrand,
			RequestedArticle: reqArticle,
			Brand:            brand,
			Article:          article,
			Price:            price,
		},
		MatchGroup: group,
	}
}

func TestBuildReportOrder(t *testing.T) {
	rows := []internal.ClassifiedRow{
		classified("Mann", "W712", internal.ExactMatch, "MANN", "W712", "5"),
		classified("Bosch", "2", internal.ExactMatch, "BOSCH", "2", "1"),
		classified("Bosch", "1", internal.ExactMatch, "BOSCH", "1", "1"),
		classified("Bosch", "1", internal.CrossReference, "VAG", "9", "1"),
		classified("Bosch", "1", internal.CrossReference, "FEBI", "9", "1"),
	}
	report := BuildReport(rows, nil)
	got := make([]string, len(report.Offers))
	for i, r := range report.Offers {
		got[i] = fmt.Sprintf("%s/%s/%s/%s", r.RequestedBrand, r.RequestedArticle, r.MatchGroup, r.Brand)
	}
	want := []string{
		"Bosch/1/CrossReference/FEBI",
		"Bosch/1/CrossReference/VAG",
		"Bosch/1/ExactMatch/BOSCH",
		"Bosch/2/ExactMatch/BOSCH",
		"Mann/W712/ExactMatch/MANN",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v", got)
		}
	}
	if report.Unmatched == nil {
		t.Fatal("unmatched must be an empty slice")
	}
}

func TestBuildReportPermutationInvariant(t *testing.T) {
	var rows []internal.ClassifiedRow
	for i := 0; i < 40; i++ {
		// identical sort keys, different prices
		rows = append(rows, classified("B", fmt.Sprint(i%3), internal.ExactMatch, "B", fmt.Sprint(i%3), fmt.Sprint(i)))
	}
	base := fmt.Sprint(BuildReport(rows, nil).Offers)

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 10; n++ {
		shuffled := append([]internal.ClassifiedRow(nil), rows...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := fmt.Sprint(BuildReport(shuffled, nil).Offers); got != base {
			t.Fatalf("permutation %d sorted differently", n)
		}
	}
}

func TestBuildReportKeepsUnmatchedOrder(t *testing.T) {
	unmatched := []internal.UnmatchedRequest{
		{Brand: "Z", Article: "1", Reason: "no offers or API error"},
		{Brand: "A", Article: "2", Reason: "no offers or API error"},
	}
	report := BuildReport(nil, unmatched)
	if report.Unmatched[0].Brand != "Z" || report.Unmatched[1].Brand != "A" {
		t.Fatalf("unmatched=%v", report.Unmatched)
	}
	if report.Offers == nil || len(report.Offers) != 0 {
		t.Fatalf("offers=%v", report.Offers)
	}
}

func TestOfferRecordColumns(t *testing.T) {
	qty := 2.0
	row := internal.ClassifiedRow{
		ExtractedRow: internal.ExtractedRow{
			Brand: "BOSCH", Article: "0986AB1", Description: "Filter", Availability: "4",
			Price: "100.5", SupplierCode: "MSK", SupplierName: "Main", Warehouse: "Moscow",
			DeliveryTime: "in stock", RequestedBrand: "Bosch", RequestedArticle: "0 986 AB1",
			RequestedQuantity: &qty,
		},
		MatchGroup:   internal.ExactMatch,
		ProfileLabel: "Retail",
	}
	rec := OfferRecord(row)
	if len(rec) != len(OfferHeaders) {
		t.Fatalf("record has %d cells, headers %d", len(rec), len(OfferHeaders))
	}
	want := []any{"Bosch", "0 986 AB1", "ExactMatch", "BOSCH", "0986AB1", "Filter", 2.0, "4", 100.5, "in stock", "Moscow", "MSK", "Main", "Retail"}
	for i := range want {
		if rec[i] != want[i] {
			t.Fatalf("cell %d (%s)=%v want %v", i, OfferHeaders[i], rec[i], want[i])
		}
	}

	u := UnmatchedRecord(internal.UnmatchedRequest{Brand: "A", Article: "1", Reason: "r"})
	if len(u) != len(UnmatchedHeaders) || u[2] != "" || u[3] != "r" {
		t.Fatalf("unmatched record=%v", u)
	}
}
