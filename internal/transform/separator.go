// Package transform turns raw CSV lines of an unknown dialect into
// canonical transaction rows: separator detection, field mapping and
// the pure row transformation that composes the format parsers.
package transform

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/castlemilk/bankfeed/backend/internal/oracle"
)

// sampleLineCount is how many raw lines are shown to the oracle when
// detecting the separator.
const sampleLineCount = 5

// DetectSeparator asks the oracle which field separator the file uses,
// based on the first few raw lines.
func DetectSeparator(ctx context.Context, classifier oracle.Classifier, lines []string) (*oracle.SeparatorResult, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no sample lines")
	}
	if len(lines) > sampleLineCount {
		lines = lines[:sampleLineCount]
	}

	resp, err := classifier.Classify(ctx, oracle.Request{
		Kind:  oracle.KindDetectSeparator,
		Lines: lines,
	})
	if err != nil {
		return nil, fmt.Errorf("detect separator: %w", err)
	}
	return resp.Separator, nil
}

// DetectMapping asks the oracle how the raw columns map to canonical
// fields, based on the header row and one representative data row.
func DetectMapping(ctx context.Context, classifier oracle.Classifier, header, sampleRow string) (*oracle.FieldMapping, error) {
	resp, err := classifier.Classify(ctx, oracle.Request{
		Kind:      oracle.KindMapFields,
		Header:    header,
		SampleRow: sampleRow,
	})
	if err != nil {
		return nil, fmt.Errorf("detect mapping: %w", err)
	}
	return resp.Mapping, nil
}

// SplitFields splits one raw line on the detected separator, honoring
// CSV quoting.
func SplitFields(line, separator string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = []rune(separator)[0]
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("split line: %w", err)
	}
	return fields, nil
}

// RowMap zips header names with row fields. Extra fields are dropped;
// missing ones are absent from the map.
func RowMap(header, fields []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(fields) {
			break
		}
		row[strings.TrimSpace(name)] = fields[i]
	}
	return row
}
