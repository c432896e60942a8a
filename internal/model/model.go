// Package model defines the canonical domain types shared by the
// ingestion and categorization pipeline.
package model

import "time"

// UploadStatus is the lifecycle state of an ingestion job.
type UploadStatus string

const (
	UploadStatusPending            UploadStatus = "pending"
	UploadStatusDetectingSeparator UploadStatus = "detecting_separator"
	UploadStatusDetectingMapping   UploadStatus = "detecting_mapping"
	UploadStatusProcessing         UploadStatus = "processing"
	UploadStatusCompleted          UploadStatus = "completed"
	UploadStatusFailed             UploadStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// Upload is one ingestion job for a single bank-export file.
// EncryptedFilename, EncryptedMappings and EncryptedError hold
// ciphertext produced by the blob cipher; the plaintext never touches
// the store.
type Upload struct {
	ID                string       `firestore:"id"`
	UserID            string       `firestore:"userId"`
	AccountID         string       `firestore:"accountId"`
	EncryptedFilename string       `firestore:"encryptedFilename"`
	Status            UploadStatus `firestore:"status"`
	TotalLines        int          `firestore:"totalLines"`
	ProcessedLines    int          `firestore:"processedLines"`
	SuccessfulLines   int          `firestore:"successfulLines"`
	FailedLines       int          `firestore:"failedLines"`
	SkippedDuplicates int          `firestore:"skippedDuplicates"`
	Separator         string       `firestore:"separator"`
	EncryptedMappings string       `firestore:"encryptedMappings"`
	EncryptedError    string       `firestore:"encryptedError"`
	CreatedAt         time.Time    `firestore:"createdAt"`
	UpdatedAt         time.Time    `firestore:"updatedAt"`
}

// RawLine is one physical line of the source file. Line 0 is the
// header. EncryptedData is the ciphertext of the original line.
type RawLine struct {
	ID             string    `firestore:"id"`
	UploadID       string    `firestore:"uploadId"`
	LineNumber     int       `firestore:"lineNumber"`
	EncryptedData  string    `firestore:"encryptedData"`
	Processed      bool      `firestore:"processed"`
	EncryptedError string    `firestore:"encryptedError"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

// CanonicalRow is the dialect-independent form of a transaction row.
// It is transient: produced by the row transformer, consumed by the
// categorization engine, never persisted.
type CanonicalRow struct {
	Date        string
	Kind        string // "+" or "-"; empty when no amount resolved
	Amount      float64
	Currency    string
	Description string
	Code        string
}

// Transaction is a persisted, categorized financial event. The
// sensitive payload (description, merchant, subcategory, code) is
// stored encrypted as a single blob.
type Transaction struct {
	ID               string    `firestore:"id"`
	UserID           string    `firestore:"userId"`
	AccountID        string    `firestore:"accountId"`
	UploadID         string    `firestore:"uploadId"`
	Date             string    `firestore:"date"`
	Month            int       `firestore:"month"`
	Year             int       `firestore:"year"`
	Kind             string    `firestore:"kind"`
	Amount           float64   `firestore:"amount"`
	Currency         string    `firestore:"currency"`
	Category         Category  `firestore:"category"`
	EncryptedPayload string    `firestore:"encryptedPayload"`
	Confidence       float64   `firestore:"confidence"`
	Hash             string    `firestore:"hash"`
	CreatedAt        time.Time `firestore:"createdAt"`
}

// TransactionPayload is the plaintext shape of Transaction.EncryptedPayload.
type TransactionPayload struct {
	Description  string `json:"description"`
	MerchantName string `json:"merchantName"`
	MerchantType string `json:"merchantType"`
	Subcategory  string `json:"subcategory"`
	Code         string `json:"code"`
}

// MerchantCacheEntry is a previously resolved description→category
// assignment, scoped per user and keyed by the description digest.
type MerchantCacheEntry struct {
	Key          string    `firestore:"key"`
	UserID       string    `firestore:"userId"`
	Category     Category  `firestore:"category"`
	Subcategory  string    `firestore:"subcategory"`
	MerchantName string    `firestore:"merchantName"`
	MerchantType string    `firestore:"merchantType"`
	Confidence   float64   `firestore:"confidence"`
	UsageCount   int       `firestore:"usageCount"`
	LastUsed     time.Time `firestore:"lastUsed"`
}

// Category is a spending category assigned by the categorization
// engine. CategoryBalance marks account-state snapshot rows that must
// never be persisted as transactions.
type Category string

const (
	CategoryGroceries     Category = "Groceries"
	CategoryDining        Category = "Dining"
	CategoryTransport     Category = "Transport"
	CategoryFuel          Category = "Fuel"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategorySubscriptions Category = "Subscriptions"
	CategoryUtilities     Category = "Utilities"
	CategoryHousing       Category = "Housing"
	CategoryHealthcare    Category = "Healthcare"
	CategoryInsurance     Category = "Insurance"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryPersonalCare  Category = "Personal Care"
	CategoryFees          Category = "Fees & Charges"
	CategoryTaxes         Category = "Taxes"
	CategorySalary        Category = "Salary"
	CategoryIncome        Category = "Income"
	CategoryTransfers     Category = "Transfers"
	CategoryInvestments   Category = "Investments"
	CategoryBalance       Category = "Balance"
	CategoryOther         Category = "Other"
)

// Categories lists every valid category, in the order presented to the
// classification oracle.
var Categories = []Category{
	CategoryGroceries, CategoryDining, CategoryTransport, CategoryFuel,
	CategoryShopping, CategoryEntertainment, CategorySubscriptions,
	CategoryUtilities, CategoryHousing, CategoryHealthcare,
	CategoryInsurance, CategoryEducation, CategoryTravel,
	CategoryPersonalCare, CategoryFees, CategoryTaxes, CategorySalary,
	CategoryIncome, CategoryTransfers, CategoryInvestments,
	CategoryBalance, CategoryOther,
}

// ParseCategory maps a free-form category string from the oracle to a
// known Category, defaulting to Other.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}
