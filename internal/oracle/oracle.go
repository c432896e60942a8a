// Package oracle wraps the external classification service behind a
// typed request/response interface. The pipeline treats it as a black
// box that answers three kinds of question: which separator a CSV
// sample uses, how raw columns map to canonical fields, and which
// category each transaction in a batch belongs to.
package oracle

import "context"

// Kind identifies a classification request shape.
type Kind string

const (
	KindDetectSeparator Kind = "detect_separator"
	KindMapFields       Kind = "map_fields"
	KindCategorizeBatch Kind = "categorize_batch"
)

// Request is a classification request. Exactly one field group is
// populated depending on Kind.
type Request struct {
	Kind Kind

	// KindDetectSeparator: the first few raw lines of the file.
	Lines []string

	// KindMapFields: the header row plus one representative data row.
	Header    string
	SampleRow string

	// KindCategorizeBatch: the rows to categorize.
	Rows []BatchRow
}

// Response carries the result matching the request kind.
type Response struct {
	Separator *SeparatorResult
	Mapping   *FieldMapping
	Batch     *CategorizedBatch
}

// Classifier is the oracle contract consumed by the pipeline.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Response, error)
}

// SeparatorResult is the answer to a detect_separator request. The
// separator is constrained to one of , ; \t | : or space.
type SeparatorResult struct {
	Separator  string  `json:"separator"`
	Confidence float64 `json:"confidence"`
}

// FieldRef points a canonical field at a raw column, optionally with a
// sub-format (a date layout or number format hint).
type FieldRef struct {
	SourceField string `json:"sourceField"`
	Format      string `json:"format,omitempty"`
}

// FieldMapping is the answer to a map_fields request. Outgoing and
// Incoming share a SourceField when debit and credit live in one
// signed column. Currency.SourceField is "fixed" when the file has no
// currency column; Code.SourceField is "none" when there is no code.
type FieldMapping struct {
	Date        FieldRef `json:"date"`
	Outgoing    FieldRef `json:"fieldForOutgoing"`
	Incoming    FieldRef `json:"fieldForIncoming"`
	Currency    FieldRef `json:"currency"`
	Description FieldRef `json:"description"`
	Code        FieldRef `json:"code"`
	Confidence  float64  `json:"confidence"`
	Notes       string   `json:"notes,omitempty"`
}

// SharedAmountColumn reports whether debit and credit share one signed
// source column.
func (m *FieldMapping) SharedAmountColumn() bool {
	return m.Outgoing.SourceField != "" && m.Outgoing.SourceField == m.Incoming.SourceField
}

// BatchRow is one transaction presented to a categorize_batch request.
type BatchRow struct {
	TransactionID string  `json:"transactionId"`
	Date          string  `json:"date"`
	Kind          string  `json:"kind"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Description   string  `json:"description"`
}

// BatchItem is the categorization of a single row.
type BatchItem struct {
	TransactionID string  `json:"transactionId"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory"`
	MerchantName  string  `json:"merchantName"`
	MerchantType  string  `json:"merchantType"`
	Confidence    float64 `json:"confidence"`
}

// CategorizedBatch is the answer to a categorize_batch request.
type CategorizedBatch struct {
	Items []BatchItem `json:"transactions"`
}
