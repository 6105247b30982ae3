package models

import "time"

// Competitor is a tracked rival vendor. Records are never deleted.
type Competitor struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"size:255;not null;index" json:"name"`
	MarketPosition    string    `gorm:"size:100;index" json:"marketPosition"`
	DistributionModel string    `gorm:"size:100;index" json:"distributionModel"`
	Website           string    `gorm:"size:255" json:"website,omitempty"`
	Description       string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CompetitorInsight is an append-only note about a competitor
type CompetitorInsight struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CompetitorID uint64    `gorm:"not null;index" json:"competitorId"`
	Note         string    `gorm:"type:text;not null" json:"note"`
	AuthorID     string    `gorm:"size:64" json:"authorId,omitempty"`
	NotedAt      time.Time `gorm:"not null;index" json:"notedAt"`
}

func (Competitor) TableName() string {
	return "competitors"
}

func (CompetitorInsight) TableName() string {
	return "competitor_insights"
}
