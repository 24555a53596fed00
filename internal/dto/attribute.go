package dto

import (
	"time"

	"github.com/haksa-io/student-records-api/internal/models"
)

// DefineAttributeRequest registers a new catalog key.
type DefineAttributeRequest struct {
	Key             string                   `json:"key" binding:"required" validate:"required,min=1,max=100"`
	DisplayName     map[string]string        `json:"display_name" validate:"required"`
	DataType        models.AttributeDataType `json:"data_type" binding:"required" validate:"required,oneof=text number date boolean file select multiselect"`
	Required        bool                     `json:"required"`
	Sensitive       bool                     `json:"sensitive"`
	Encrypted       bool                     `json:"encrypted"`
	ValidationRules models.ValidationRules   `json:"validation_rules"`
	Category        string                   `json:"category"`
	Ordering        int                      `json:"ordering"`
}

// WriteAttributeRequest upserts one value for a student.
type WriteAttributeRequest struct {
	Value interface{} `json:"value" binding:"required"`
}

// AttributeReadResponse is the decrypted attribute map for a student plus any
// keys that failed decryption.
type AttributeReadResponse struct {
	StudentID  string            `json:"student_id"`
	Attributes map[string]string `json:"attributes"`
	FailedKeys []string          `json:"failed_keys,omitempty"`
}

// AttributeValueResponse echoes a stored value after a write.
type AttributeValueResponse struct {
	StudentID    string    `json:"student_id"`
	AttributeKey string    `json:"attribute_key"`
	Encrypted    bool      `json:"encrypted"`
	UpdatedBy    string    `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
}
