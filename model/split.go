package model

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"
)

// TotalBasisPoints is a full split: 100% expressed in basis points (0.01%).
const TotalBasisPoints = 10000

// SplitEntry assigns a revenue share to one collaborator. Shares are stored
// as basis points so that sum-to-100 can be checked exactly.
type SplitEntry struct {
	IdentityID  string `json:"identityId"`
	BasisPoints int64  `json:"basisPoints"`
}

// Percent returns the entry's share as a decimal percentage.
func (e SplitEntry) Percent() float64 {
	return float64(e.BasisPoints) / 100.0
}

// PercentToBasisPoints converts a decimal percentage to basis points,
// rounding half-up to two decimal places.
func PercentToBasisPoints(percent float64) int64 {
	return int64(math.Floor(percent*100 + 0.5))
}

// SplitEntryList is a custom type for GORM JSON column scanning.
type SplitEntryList []SplitEntry

// Scan implements the sql.Scanner interface.
func (s *SplitEntryList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface.
func (s SplitEntryList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// OwnershipSplit is a project's current split row.
type OwnershipSplit struct {
	ProjectID string         `json:"projectId" gorm:"primaryKey;size:36"`
	Entries   SplitEntryList `json:"entries" gorm:"type:json"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TableName sets the ownership_splits table name.
func (OwnershipSplit) TableName() string {
	return "ownership_splits"
}

// SplitAudit is an immutable record of one rebalance.
type SplitAudit struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID     string         `json:"projectId" gorm:"size:36;index;not null"`
	RequesterID   string         `json:"requesterId" gorm:"size:64;not null"`
	PreviousSplit SplitEntryList `json:"previousSplit" gorm:"type:json"`
	NewSplit      SplitEntryList `json:"newSplit" gorm:"type:json"`
	CreatedAt     time.Time      `json:"createdAt" gorm:"index"`
}

// TableName sets the split_audits table name.
func (SplitAudit) TableName() string {
	return "split_audits"
}
