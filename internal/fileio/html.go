package fileio

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// readHTML reads the first <table> with at least two rows. Some ERP
// systems export "xls" reports as HTML tables.
func readHTML(r io.Reader) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var out [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		trs := table.Find("tr")
		if trs.Length() < 2 {
			return true
		}
		trs.Each(func(_ int, tr *goquery.Selection) {
			cells := []string{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			out = append(out, cells)
		})
		return false
	})
	return out, nil
}
