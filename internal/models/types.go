package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSON type for PostgreSQL JSONB
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	raw, ok := rawJSON(value)
	if !ok {
		*j = nil
		return nil
	}
	return json.Unmarshal(raw, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	raw, ok := rawJSON(value)
	if !ok {
		*j = nil
		return nil
	}
	return json.Unmarshal(raw, j)
}

// rawJSON accepts both the postgres ([]byte) and sqlite (string) representations.
func rawJSON(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, len(bytes.TrimSpace(v)) > 0
	case string:
		return []byte(v), len(v) > 0
	default:
		return nil, false
	}
}

// OptionalUUID distinguishes an absent JSON key from an explicit null.
type OptionalUUID struct {
	Set   bool
	Valid bool
	UUID  uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.UUID); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Ptr returns nil for an explicit null.
func (o OptionalUUID) Ptr() *uuid.UUID {
	if !o.Valid {
		return nil
	}
	id := o.UUID
	return &id
}

// Lifecycle is the tri-state of a soft-deletable row.
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleTrashed Lifecycle = "trashed"
	LifecycleAbsent  Lifecycle = "absent"
)

func LifecycleOf(deletedAt gorm.DeletedAt) Lifecycle {
	if deletedAt.Valid {
		return LifecycleTrashed
	}
	return LifecycleActive
}

// Trashed selects which lifecycle states a query returns.
type Trashed string

const (
	WithoutTrashed Trashed = "without"
	WithTrashed    Trashed = "with"
	OnlyTrashed    Trashed = "only"
)

// ParseTrashed maps a query-string value to a Trashed selector, defaulting to WithoutTrashed.
func ParseTrashed(value string) Trashed {
	switch Trashed(value) {
	case WithTrashed, OnlyTrashed:
		return Trashed(value)
	default:
		return WithoutTrashed
	}
}

// PaginationInfo represents pagination information
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

func NewPaginationInfo(page, limit int, total int64) *PaginationInfo {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// BulkIDsRequest is shared by bulk delete, restore and force delete
type BulkIDsRequest struct {
	IDs   []uuid.UUID `json:"ids" binding:"required,min=1,max=100"`
	Force bool        `json:"force"`
}

// BulkResult summarizes a bulk operation over ids
type BulkResult struct {
	TotalCount    int      `json:"total_count"`
	AffectedCount int      `json:"affected_count"`
	FailedIDs     []string `json:"failed_ids,omitempty"`
}
