package internal

import "fmt"

// TenderRequest is one unique (brand, article, quantity) triple from the input sheet.
type TenderRequest struct {
	Brand    string
	Article  string
	Quantity *float64
}

type MatchGroup string

const (
	ExactMatch     MatchGroup = "ExactMatch"
	CrossReference MatchGroup = "CrossReference"
)

// Offer is one raw record from the search endpoint. Any key may be missing.
type Offer map[string]any

type ExtractedRow struct {
	Brand        string
	Article      string
	Description  string
	Availability string
	Price        string
	SupplierCode string
	SupplierName string
	Warehouse    string
	DeliveryTime string

	RequestedBrand    string
	RequestedArticle  string
	RequestedQuantity *float64
}

type ClassifiedRow struct {
	ExtractedRow
	MatchGroup   MatchGroup
	ProfileLabel string
}

type UnmatchedRequest struct {
	Brand    string
	Article  string
	Quantity *float64
	Reason   string
}

// Directory maps distributor id to its display name. Read-only after load.
type Directory map[int]string

// Name returns the display name for id or "" when unknown.
func (d Directory) Name(id int) string {
	if d == nil {
		return ""
	}
	return d[id]
}

type Report struct {
	Offers    []ClassifiedRow
	Unmatched []UnmatchedRequest
}

type ClientProfile struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ProfileID string `db:"profile_id" json:"profileId"`
}

func (p ClientProfile) String() string {
	return fmt.Sprintf("%s (profileId=%s)", p.Name, p.ProfileID)
}

type JobStatus string

const (
	JobNew        JobStatus = "new"
	JobInProgress JobStatus = "in_progress"
	JobDone       JobStatus = "done"
	JobError      JobStatus = "error"
)

type TenderJob struct {
	ID         int64     `db:"id" json:"id"`
	ProfileID  int64     `db:"client_profile_id" json:"clientProfileId"`
	Status     JobStatus `db:"status" json:"status"`
	InputPath  string    `db:"input_path" json:"inputPath"`
	ResultPath *string   `db:"result_path" json:"resultPath,omitempty"`
	Log        string    `db:"log" json:"log"`
	CreatedAt  string    `db:"created_at" json:"createdAt"`
	UpdatedAt  string    `db:"updated_at" json:"updatedAt"`
}
