package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttributeDataType enumerates the supported dynamic attribute types.
type AttributeDataType string

const (
	AttributeTypeText        AttributeDataType = "text"
	AttributeTypeNumber      AttributeDataType = "number"
	AttributeTypeDate        AttributeDataType = "date"
	AttributeTypeBoolean     AttributeDataType = "boolean"
	AttributeTypeFile        AttributeDataType = "file"
	AttributeTypeSelect      AttributeDataType = "select"
	AttributeTypeMultiselect AttributeDataType = "multiselect"
)

// ValidationRules holds the type-specific constraints of a definition,
// persisted as JSONB.
type ValidationRules struct {
	Required  bool     `json:"required,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// Value marshals rules to JSON for persistence.
func (r ValidationRules) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal validation rules: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the rules struct.
func (r *ValidationRules) Scan(value interface{}) error {
	if value == nil {
		*r = ValidationRules{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan validation rules: %w", err)
	}
	if len(data) == 0 {
		*r = ValidationRules{}
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal validation rules: %w", err)
	}
	return nil
}

// LocalizedText maps language code (ko, vi) to display text, persisted as JSONB.
type LocalizedText map[string]string

// Value marshals the map to JSON.
func (l LocalizedText) Value() (driver.Value, error) {
	if l == nil {
		l = LocalizedText{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal localized text: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the map.
func (l *LocalizedText) Scan(value interface{}) error {
	if value == nil {
		*l = LocalizedText{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan localized text: %w", err)
	}
	if len(data) == 0 {
		*l = LocalizedText{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal localized text: %w", err)
	}
	return nil
}

// AttributeDefinition describes one dynamic attribute key in the catalog.
// The key is the immutable identity; definitions are soft-deactivated, never
// hard-deleted once values reference them.
type AttributeDefinition struct {
	ID              string            `db:"id" json:"id"`
	Key             string            `db:"key" json:"key"`
	DisplayName     LocalizedText     `db:"display_name" json:"display_name"`
	DataType        AttributeDataType `db:"data_type" json:"data_type"`
	Required        bool              `db:"required" json:"required"`
	Sensitive       bool              `db:"sensitive" json:"sensitive"`
	Encrypted       bool              `db:"encrypted" json:"encrypted"`
	ValidationRules ValidationRules   `db:"validation_rules" json:"validation_rules"`
	Category        string            `db:"category" json:"category"`
	Ordering        int               `db:"ordering" json:"ordering"`
	Active          bool              `db:"active" json:"active"`
	CreatedBy       string            `db:"created_by" json:"created_by"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// StudentAttributeValue is one (student, key) row of the EAV store. The raw
// value is text-encoded; sealed ciphertext when the definition was sensitive or
// encrypted at write time.
type StudentAttributeValue struct {
	StudentID    string    `db:"student_id" json:"student_id"`
	AttributeKey string    `db:"attribute_key" json:"attribute_key"`
	RawValue     string    `db:"raw_value" json:"raw_value"`
	Encrypted    bool      `db:"encrypted" json:"encrypted"`
	UpdatedBy    string    `db:"updated_by" json:"updated_by"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func jsonbBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
