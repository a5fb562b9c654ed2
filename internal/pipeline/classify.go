package pipeline

import (
	"tender/internal"
	"tender/internal/util"
)

// IsExactMatch reports whether the row names the same part as the request.
func IsExactMatch(row internal.ExtractedRow, req internal.TenderRequest) bool {
	return util.NormalizeToken(row.Brand) == util.NormalizeToken(req.Brand) &&
		util.NormalizeToken(row.Article) == util.NormalizeToken(req.Article)
}

// Classify tags the row; cross-reference rows lose the requested quantity.
func Classify(row internal.ExtractedRow, req internal.TenderRequest, profileLabel string) internal.ClassifiedRow {
	group := internal.CrossReference
	if IsExactMatch(row, req) {
		group = internal.ExactMatch
	} else {
		row.RequestedQuantity = nil
	}
	return internal.ClassifiedRow{ExtractedRow: row, MatchGroup: group, ProfileLabel: profileLabel}
}
