package transform

import (
	"math"
	"strings"

	"github.com/castlemilk/bankfeed/backend/internal/format"
	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
)

// RowTransformer converts a raw field map into a canonical row under a
// fixed field mapping. It is deterministic and pure: the same row and
// mapping always produce the same output.
type RowTransformer struct {
	mapping         oracle.FieldMapping
	defaultCurrency string
}

// NewRowTransformer builds a transformer for one upload's mapping.
// defaultCurrency is used when the mapping marks the currency column
// as "fixed".
func NewRowTransformer(mapping oracle.FieldMapping, defaultCurrency string) *RowTransformer {
	return &RowTransformer{mapping: mapping, defaultCurrency: defaultCurrency}
}

// Transform applies the mapping to one raw row. Rows without a
// resolvable amount come back with Amount 0 and an empty Kind; the
// caller drops them.
func (t *RowTransformer) Transform(row map[string]string) model.CanonicalRow {
	out := model.CanonicalRow{
		Date:        t.transformDate(row),
		Currency:    t.transformCurrency(row),
		Description: strings.TrimSpace(row[t.mapping.Description.SourceField]),
		Code:        t.transformCode(row),
	}
	out.Kind, out.Amount = t.transformAmount(row)
	return out
}

func (t *RowTransformer) transformDate(row map[string]string) string {
	raw, ok := row[t.mapping.Date.SourceField]
	if !ok || strings.TrimSpace(raw) == "" {
		return ""
	}
	return format.ParseDate(raw, t.mapping.Date.Format)
}

func (t *RowTransformer) transformAmount(row map[string]string) (string, float64) {
	if t.mapping.SharedAmountColumn() {
		// One signed column: the sign decides the direction.
		value, _, ok := format.Parse(row[t.mapping.Outgoing.SourceField])
		if !ok {
			return "", 0
		}
		if value < 0 {
			return "-", math.Abs(value)
		}
		return "+", value
	}

	// Distinct columns: a positive outgoing value wins over incoming.
	if outgoing, _, ok := format.Parse(row[t.mapping.Outgoing.SourceField]); ok && outgoing > 0 {
		return "-", outgoing
	}
	if incoming, _, ok := format.Parse(row[t.mapping.Incoming.SourceField]); ok && incoming > 0 {
		return "+", incoming
	}
	return "", 0
}

func (t *RowTransformer) transformCurrency(row map[string]string) string {
	src := t.mapping.Currency.SourceField
	if src == "" || src == "fixed" {
		return t.defaultCurrency
	}
	if currency := strings.TrimSpace(row[src]); currency != "" {
		return currency
	}
	return t.defaultCurrency
}

func (t *RowTransformer) transformCode(row map[string]string) string {
	src := t.mapping.Code.SourceField
	if src == "" || src == "none" {
		return ""
	}
	return strings.TrimSpace(row[src])
}
