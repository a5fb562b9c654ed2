package pipeline

import (
	"fmt"
	"strings"

	"tender/internal"
	"tender/internal/fileio"
	"tender/internal/util"
)

var (
	brandKeywords   = []string{"brand", "бренд", "производитель"}
	articleKeywords = []string{"article", "sku", "артикул", "код", "номер"}
	qtyKeywords     = []string{"qty", "quantity", "кол-во", "количество"}
)

// headerScanRows is how many leading rows may hold the header (titles above
// the table are common in customer sheets).
const headerScanRows = 5

// ColumnDetectionError means the brand or article column was not found.
type ColumnDetectionError struct {
	Missing []string
	Header  []string
}

func (e *ColumnDetectionError) Error() string {
	return fmt.Sprintf("column detection failed: no %s column in header [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Header, " | "))
}

// Columns holds the detected column index per role; -1 when absent.
type Columns struct {
	Brand     int
	Article   int
	Qty       int
	Ambiguous bool
}

// DetectColumns assigns roles brand, article, quantity in that order. The
// first matching column wins and a column serves one role only. Ambiguous is
// set when a role had more than one candidate.
func DetectColumns(header []string) Columns {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = util.NormalizeHeader(h)
	}
	claimed := map[int]bool{}
	cols := Columns{}

	pick := func(keywords []string) int {
		found := -1
		for i, h := range norm {
			if claimed[i] || !containsAny(h, keywords) {
				continue
			}
			if found >= 0 {
				cols.Ambiguous = true
				break
			}
			found = i
		}
		if found >= 0 {
			claimed[found] = true
		}
		return found
	}

	cols.Brand = pick(brandKeywords)
	cols.Article = pick(articleKeywords)
	cols.Qty = pick(qtyKeywords)
	return cols
}

// ExtractRequests turns the input grid into unique requests in first-seen
// order. Rows without brand or article are dropped; duplicates are detected
// on the exact (brand, article, quantity) values.
func ExtractRequests(table fileio.Table) ([]internal.TenderRequest, bool, error) {
	headerIdx := -1
	var cols Columns
	for i := 0; i < len(table.Rows) && i < headerScanRows; i++ {
		c := DetectColumns(table.Rows[i])
		if c.Brand >= 0 && c.Article >= 0 {
			headerIdx, cols = i, c
			break
		}
	}
	if headerIdx < 0 {
		var header []string
		if len(table.Rows) > 0 {
			header = table.Rows[0]
		}
		c := DetectColumns(header)
		missing := []string{}
		if c.Brand < 0 {
			missing = append(missing, "brand")
		}
		if c.Article < 0 {
			missing = append(missing, "article")
		}
		return nil, false, &ColumnDetectionError{Missing: missing, Header: header}
	}

	seen := map[string]struct{}{}
	out := []internal.TenderRequest{}
	for _, row := range table.Rows[headerIdx+1:] {
		brand := pickCell(row, cols.Brand)
		article := pickCell(row, cols.Article)
		if brand == "" || article == "" {
			continue
		}
		var qty *float64
		if cols.Qty >= 0 {
			qty = util.ParseQty(pickCell(row, cols.Qty))
		}

		key := brand + "\x00" + article + "\x00" + qtyKey(qty)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, internal.TenderRequest{Brand: brand, Article: article, Quantity: qty})
	}
	return out, cols.Ambiguous, nil
}

func qtyKey(q *float64) string {
	if q == nil {
		return "null"
	}
	return util.FormatNumber(*q)
}

func containsAny(h string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}
