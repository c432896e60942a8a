package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

func separatorPrompt(lines []string) string {
	return fmt.Sprintf(`You are given the first lines of a bank-export CSV file.
Determine the field separator character.

Lines:
%s

Return ONLY a valid JSON object with this structure:
{"separator": ",", "confidence": 0.95}

Rules:
- The separator must be exactly one of: "," ";" "\t" "|" ":" " "
- Prefer the candidate that yields the same field count on every line
- Regional convention: files whose amounts use "," as the decimal
  separator almost always use ";" as the field separator
- confidence is 0.0 to 1.0`, strings.Join(lines, "\n"))
}

func mappingPrompt(header, sampleRow string) string {
	return fmt.Sprintf(`You are given the header row and one data row of a bank-export CSV file.
Map the raw columns to canonical transaction fields.

Header: %s
Data row: %s

Return ONLY a valid JSON object with this structure:
{
  "date": {"sourceField": "column name", "format": "DD/MM/YYYY|MM/DD/YYYY|YYYY-MM-DD|DD-MM-YYYY|MM-DD-YYYY"},
  "fieldForOutgoing": {"sourceField": "column name", "format": "number format note"},
  "fieldForIncoming": {"sourceField": "column name", "format": "number format note"},
  "currency": {"sourceField": "column name or fixed"},
  "description": {"sourceField": "column name"},
  "code": {"sourceField": "column name or none"},
  "confidence": 0.0,
  "notes": "free text"
}

Rules:
- When a single signed column holds both debits and credits, use that
  column name for BOTH fieldForOutgoing and fieldForIncoming
- When the file has no currency column, set currency.sourceField to "fixed"
- When the file has no transaction code column, set code.sourceField to "none"
- confidence is 0.0 to 1.0`, header, sampleRow)
}

func categorizePrompt(rows []BatchRow) string {
	categories := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		categories[i] = string(c)
	}
	payload, _ := json.Marshal(rows)

	return fmt.Sprintf(`Categorize each bank transaction below.

Transactions (JSON):
%s

Return ONLY a valid JSON object with this structure:
{
  "transactions": [
    {"transactionId": "id", "category": "...", "subcategory": "...", "merchantName": "...", "merchantType": "...", "confidence": 0.0}
  ]
}

Rules:
- category MUST be exactly one of: %s
- Use "Balance" ONLY for rows that are account-state snapshots
  (opening/closing balance lines), not money movements
- Use "Other" only when nothing else fits
- merchantName is the cleaned counterparty name; merchantType is a
  short descriptor such as "supermarket" or "streaming service"
- Return one entry per input row, same transactionId
- confidence is 0.0 to 1.0`, payload, strings.Join(categories, ", "))
}
