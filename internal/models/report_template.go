package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DataSourceKind distinguishes scalar lookups from computed fragments.
type DataSourceKind string

const (
	SourceKindScalar DataSourceKind = "scalar"
	SourceKindChart  DataSourceKind = "chart"
	SourceKindList   DataSourceKind = "list"
)

// TemplateDataSource declares which aggregate field feeds one placeholder.
type TemplateDataSource struct {
	Placeholder string         `json:"placeholder"`
	Kind        DataSourceKind `json:"kind"`
	Field       string         `json:"field,omitempty"`
	Threshold   *float64       `json:"threshold,omitempty"`
	Limit       int            `json:"limit,omitempty"`
}

// TemplateDataSources is a JSONB-persisted list of data source declarations.
type TemplateDataSources []TemplateDataSource

// Value marshals the list to JSON.
func (s TemplateDataSources) Value() (driver.Value, error) {
	if s == nil {
		s = TemplateDataSources{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal data sources: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (s *TemplateDataSources) Scan(value interface{}) error {
	if value == nil {
		*s = TemplateDataSources{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan data sources: %w", err)
	}
	if len(data) == 0 {
		*s = TemplateDataSources{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal data sources: %w", err)
	}
	return nil
}

// TemplateLabels maps language code to label key to display text.
type TemplateLabels map[string]map[string]string

// Value marshals labels to JSON.
func (l TemplateLabels) Value() (driver.Value, error) {
	if l == nil {
		l = TemplateLabels{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal template labels: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the label map.
func (l *TemplateLabels) Scan(value interface{}) error {
	if value == nil {
		*l = TemplateLabels{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan template labels: %w", err)
	}
	if len(data) == 0 {
		*l = TemplateLabels{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal template labels: %w", err)
	}
	return nil
}

// AllowedRoles is a JSONB-persisted role list.
type AllowedRoles []UserRole

// Value marshals roles to JSON.
func (r AllowedRoles) Value() (driver.Value, error) {
	if r == nil {
		r = AllowedRoles{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal allowed roles: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the role list.
func (r *AllowedRoles) Scan(value interface{}) error {
	if value == nil {
		*r = AllowedRoles{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return fmt.Errorf("scan allowed roles: %w", err)
	}
	if len(data) == 0 {
		*r = AllowedRoles{}
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal allowed roles: %w", err)
	}
	return nil
}

// Contains reports role membership; an empty list admits every role.
func (r AllowedRoles) Contains(role UserRole) bool {
	if len(r) == 0 {
		return true
	}
	for _, allowed := range r {
		if allowed == role {
			return true
		}
	}
	return false
}

// ReportTemplate is one immutable published template version. Editing a
// template creates a new row linked through ParentTemplateID; code resolution
// picks the highest active version.
type ReportTemplate struct {
	ID               string              `db:"id" json:"id"`
	TemplateCode     string              `db:"template_code" json:"template_code"`
	ReportType       string              `db:"report_type" json:"report_type"`
	Version          int                 `db:"version" json:"version"`
	ParentTemplateID *string             `db:"parent_template_id" json:"parent_template_id,omitempty"`
	HTMLBody         string              `db:"html_body" json:"html_body"`
	CSS              string              `db:"css" json:"css"`
	DataSources      TemplateDataSources `db:"data_sources" json:"data_sources"`
	Labels           TemplateLabels      `db:"labels" json:"labels"`
	AllowedRoles     AllowedRoles        `db:"allowed_roles" json:"allowed_roles"`
	Active           bool                `db:"active" json:"active"`
	IsDefault        bool                `db:"is_default" json:"is_default"`
	CreatedBy        string              `db:"created_by" json:"created_by"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// Label resolves a label key in the requested language, falling back to ko,
// then to the key itself.
func (t *ReportTemplate) Label(language, key string) string {
	if labels, ok := t.Labels[language]; ok {
		if text, ok := labels[key]; ok && text != "" {
			return text
		}
	}
	if labels, ok := t.Labels["ko"]; ok {
		if text, ok := labels[key]; ok && text != "" {
			return text
		}
	}
	return key
}
