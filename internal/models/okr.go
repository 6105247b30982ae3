package models

import "time"

// OKR item status codes. APPROVED and REJECTED are only reached through approvals.
const (
	OkrStatusDraft           = "DRAFT"
	OkrStatusPendingApproval = "PENDING_APPROVAL"
	OkrStatusApproved        = "APPROVED"
	OkrStatusRejected        = "REJECTED"
)

// OKR item types
const (
	OkrTypeObjective = "OBJECTIVE"
	OkrTypeKeyResult = "KEY_RESULT"
)

// Approval decisions
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

// Cycle statuses
const (
	CycleStatusPlanning = "PLANNING"
	CycleStatusActive   = "ACTIVE"
	CycleStatusClosed   = "CLOSED"
)

// OkrCycle is a bounded evaluation period
type OkrCycle struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Label       string    `gorm:"size:100;not null;index" json:"label"`
	StartDate   time.Time `gorm:"not null" json:"startDate"`
	EndDate     time.Time `gorm:"not null" json:"endDate"`
	Status      string    `gorm:"size:32;not null;index" json:"status"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OkrItem is an objective or key result, optionally nested under a parent item of the same cycle
type OkrItem struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CycleID      uint64    `gorm:"not null;index" json:"cycleId"`
	ParentID     *uint64   `gorm:"index" json:"parentId,omitempty"`
	OwnerID      uint64    `gorm:"not null;index" json:"ownerId"`
	ApproverID   *uint64   `gorm:"index" json:"approverId,omitempty"`
	ItemType     string    `gorm:"size:32;not null" json:"itemType"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	TargetValue  float64   `json:"targetValue"`
	CurrentValue float64   `json:"currentValue"`
	Weight       float64   `json:"weight"`
	StatusCode   string    `gorm:"size:32;not null;index" json:"statusCode"`
	Metadata     JSON      `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	MemberIDs []uint64 `gorm:"-" json:"memberIds"`
}

// OkrMember assigns a member to an item
type OkrMember struct {
	ItemID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"itemId"`
	MemberID  uint64    `gorm:"primaryKey;autoIncrement:false;index" json:"memberId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OkrApproval is one approver decision on an item
type OkrApproval struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID     uint64    `gorm:"not null;index" json:"itemId"`
	ApproverID uint64    `gorm:"not null;index" json:"approverId"`
	Decision   string    `gorm:"size:32;not null" json:"decision"`
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	DecidedAt  time.Time `gorm:"not null" json:"decidedAt"`
}

// OkrEvaluation is the single score an evaluator gives an item
type OkrEvaluation struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID      uint64    `gorm:"not null;uniqueIndex:uq_okr_evaluation_item_evaluator,priority:1" json:"itemId"`
	EvaluatorID uint64    `gorm:"not null;uniqueIndex:uq_okr_evaluation_item_evaluator,priority:2" json:"evaluatorId"`
	Score       float64   `gorm:"not null" json:"score"`
	Comment     string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (OkrCycle) TableName() string      { return "okr_cycles" }
func (OkrItem) TableName() string       { return "okr_items" }
func (OkrMember) TableName() string     { return "okr_members" }
func (OkrApproval) TableName() string   { return "okr_approvals" }
func (OkrEvaluation) TableName() string { return "okr_evaluations" }
