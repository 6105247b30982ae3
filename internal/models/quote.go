package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote statuses
const (
	QuoteStatusDraft     = "DRAFT"
	QuoteStatusSubmitted = "SUBMITTED"
	QuoteStatusApproved  = "APPROVED"
	QuoteStatusRejected  = "REJECTED"
	QuoteStatusSent      = "SENT"
	QuoteStatusWon       = "WON"
	QuoteStatusLost      = "LOST"
)

// Quote is the header of a sales proposal. Customers and their items are
// stored in their own tables and attached by the service layer.
type Quote struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteNo      string          `gorm:"size:32;not null;uniqueIndex" json:"quoteNo"`
	QuoteDate    string          `gorm:"size:8;not null;index:idx_quote_date_seq,priority:1" json:"quoteDate"`
	QuoteSeq     int             `gorm:"not null;index:idx_quote_date_seq,priority:2" json:"quoteSeq"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	CustomerName string          `gorm:"size:255;index" json:"customerName"`
	Status       string          `gorm:"size:32;not null;index" json:"status"`
	ApprovalRule string          `gorm:"size:64" json:"approvalRule,omitempty"`
	Currency     string          `gorm:"size:3;not null" json:"currency"`
	ValidUntil   *time.Time      `json:"validUntil,omitempty"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"totalAmount"`
	Note         string          `gorm:"type:text" json:"note,omitempty"`
	CreatedBy    string          `gorm:"size:64" json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Customers []QuoteCustomer `gorm:"-" json:"customers"`
}

// QuoteCustomer is one customer block of a quote, ordered by LineNo
type QuoteCustomer struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID      uint64 `gorm:"not null;index" json:"quoteId"`
	LineNo       int    `gorm:"not null" json:"lineNo"`
	CustomerName string `gorm:"size:255;not null;index" json:"customerName"`
	ContactName  string `gorm:"size:255" json:"contactName,omitempty"`
	ContactEmail string `gorm:"size:255" json:"contactEmail,omitempty"`

	Items []QuoteItem `gorm:"-" json:"items"`
}

// QuoteItem is a priced line under a quote customer, ordered by LineNo
type QuoteItem struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	QuoteID     uint64          `gorm:"not null;index" json:"quoteId"`
	CustomerID  uint64          `gorm:"not null;index" json:"customerId"`
	LineNo      int             `gorm:"not null" json:"lineNo"`
	ProductCode string          `gorm:"size:64;not null" json:"productCode"`
	ProductName string          `gorm:"size:255" json:"productName,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unitPrice"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Attributes  JSON            `json:"attributes,omitempty"`
}

// QuoteSequence holds the last issued sequence per quote date (YYYYMMDD).
// Its row is the lock that serializes quote numbering for that day.
type QuoteSequence struct {
	SeqDate string `gorm:"primaryKey;size:8"`
	LastSeq int    `gorm:"not null"`
}

func (Quote) TableName() string         { return "quotes" }
func (QuoteCustomer) TableName() string { return "quote_customers" }
func (QuoteItem) TableName() string     { return "quote_items" }
func (QuoteSequence) TableName() string { return "quote_sequences" }
