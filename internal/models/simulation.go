package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in the simulation tables
const DateLayout = "2006-01-02"

// Date is a calendar date that scans from DATE columns whether the driver
// yields time.Time (MySQL parseTime, Postgres) or text (SQLite).
type Date string

// Scan implements sql.Scanner
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case string:
		*d = Date(trimDate(v))
	case []byte:
		*d = Date(trimDate(string(v)))
	default:
		return fmt.Errorf("models.Date: unsupported scan type %T", value)
	}
	return nil
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

func trimDate(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}

// SimulationRow is one row of the upstream price simulation projection.
// The table is owned by the aggregation pipeline and only read here.
type SimulationRow struct {
	CustomerSeq    uint64  `db:"customer_seq" json:"customerSeq"`
	SimDate        Date    `db:"sim_date" json:"simDate"`
	RunID          string  `db:"run_id" json:"runId"`
	ProductCode    string  `db:"product_code" json:"productCode"`
	ProductName    string  `db:"product_name" json:"productName"`
	BasePrice      float64 `db:"base_price" json:"basePrice"`
	SimulatedPrice float64 `db:"simulated_price" json:"simulatedPrice"`
	Volume         float64 `db:"volume" json:"volume"`
	MarginRate     float64 `db:"margin_rate" json:"marginRate"`
}

// SimulationAssessment is a human score recorded against a customer's simulation
type SimulationAssessment struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerSeq uint64    `gorm:"not null;index" json:"customerSeq"`
	AssessorID  string    `gorm:"size:64;not null" json:"assessorId"`
	Score       int       `gorm:"not null" json:"score"`
	Comment     string    `gorm:"type:text" json:"comment,omitempty"`
	Token       string    `gorm:"size:36;not null;uniqueIndex" json:"token"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (SimulationAssessment) TableName() string { return "price_simulation_assessments" }
