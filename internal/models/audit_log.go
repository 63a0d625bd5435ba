package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AuditChanges is the free-form detail of an audited operation, stored as JSON text.
type AuditChanges map[string]any

// Value implements driver.Valuer.
func (a AuditChanges) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal audit changes: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *AuditChanges) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into AuditChanges", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(raw, a)
}

// AuditLog records who changed which portfolio resource and from where.
type AuditLog struct {
	Base
	UserID       string       `gorm:"not null;index" json:"user_id"`
	Action       string       `gorm:"not null;index" json:"action"`
	ResourceType string       `gorm:"not null" json:"resource_type"`
	ResourceID   string       `json:"resource_id,omitempty"`
	IPAddress    string       `json:"ip_address"`
	Changes      AuditChanges `gorm:"type:text" json:"changes,omitempty"`
}
