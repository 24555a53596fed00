package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/dto"
	"github.com/haksa-io/student-records-api/internal/models"
	appErrors "github.com/haksa-io/student-records-api/pkg/errors"
	"github.com/haksa-io/student-records-api/pkg/export"
)

type attributeDefinitionStore interface {
	Create(ctx context.Context, def *models.AttributeDefinition) error
	FindByKey(ctx context.Context, key string) (*models.AttributeDefinition, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]models.AttributeDefinition, error)
	Deactivate(ctx context.Context, key string) error
}

// CatalogService manages the attribute catalog and owns value validation.
// Definitions are append-and-deactivate; a key is never redefined in place.
type CatalogService struct {
	repo   attributeDefinitionStore
	logger *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo attributeDefinitionStore, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, logger: logger}
}

var attributeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// DefineAttribute registers a new catalog key.
func (s *CatalogService) DefineAttribute(ctx context.Context, req dto.DefineAttributeRequest, actorID string) (*models.AttributeDefinition, error) {
	if !attributeKeyPattern.MatchString(req.Key) {
		return nil, appErrors.Validation("key", "key must be snake_case starting with a letter")
	}
	if !isValidDataType(req.DataType) {
		return nil, appErrors.Validation("data_type", fmt.Sprintf("unsupported data type %q", req.DataType))
	}
	if (req.DataType == models.AttributeTypeSelect || req.DataType == models.AttributeTypeMultiselect) && len(req.ValidationRules.Options) == 0 {
		return nil, appErrors.Validation("validation_rules.options", "select types require at least one option")
	}
	if req.ValidationRules.Pattern != "" {
		if _, err := regexp.Compile(req.ValidationRules.Pattern); err != nil {
			return nil, appErrors.Validation("validation_rules.pattern", "invalid regular expression")
		}
	}
	exists, err := s.repo.ExistsByKey(ctx, req.Key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attribute key")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateKey, fmt.Sprintf("attribute %q already defined", req.Key))
	}

	def := &models.AttributeDefinition{
		Key:             req.Key,
		DisplayName:     models.LocalizedText(req.DisplayName),
		DataType:        req.DataType,
		Required:        req.Required,
		Sensitive:       req.Sensitive,
		Encrypted:       req.Encrypted,
		ValidationRules: req.ValidationRules,
		Category:        req.Category,
		Ordering:        req.Ordering,
		Active:          true,
		CreatedBy:       actorID,
	}
	if err := s.repo.Create(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attribute definition")
	}
	s.logger.Sugar().Infow("attribute defined", "key", def.Key, "data_type", def.DataType, "actor", actorID)
	return def, nil
}

// GetDefinition returns the definition for a key regardless of active state.
func (s *CatalogService) GetDefinition(ctx context.Context, key string) (*models.AttributeDefinition, error) {
	def, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownAttribute, fmt.Sprintf("attribute %q is not defined", key))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attribute definition")
	}
	return def, nil
}

// ListDefinitions returns catalog entries ordered for display.
func (s *CatalogService) ListDefinitions(ctx context.Context, activeOnly bool) ([]models.AttributeDefinition, error) {
	defs, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attribute definitions")
	}
	return defs, nil
}

// DeactivateAttribute soft-deletes a key. Stored values keep referencing it.
func (s *CatalogService) DeactivateAttribute(ctx context.Context, key string) error {
	if _, err := s.GetDefinition(ctx, key); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, key); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate attribute")
	}
	s.logger.Sugar().Infow("attribute deactivated", "key", key)
	return nil
}

// ValidateValue checks a raw input against a definition and normalizes it into
// the typed union. Validation runs against the definition's current rules, so
// a select value is rejected when its option was since removed from the set.
func (s *CatalogService) ValidateValue(def *models.AttributeDefinition, rawInput interface{}) (models.AttributeValue, error) {
	var zero models.AttributeValue
	raw := stringify(rawInput)
	if strings.TrimSpace(raw) == "" {
		if def.Required || def.ValidationRules.Required {
			return zero, appErrors.Validation(def.Key, "value is required")
		}
		return models.TextValue(""), nil
	}

	switch def.DataType {
	case models.AttributeTypeText:
		return s.validateText(def, raw)
	case models.AttributeTypeNumber:
		return s.validateNumber(def, rawInput, raw)
	case models.AttributeTypeDate:
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return zero, appErrors.Validation(def.Key, fmt.Sprintf("%q is not a valid ISO-8601 date", raw))
		}
		return models.DateValue(parsed), nil
	case models.AttributeTypeBoolean:
		b, err := coerceBoolean(rawInput, raw)
		if err != nil {
			return zero, appErrors.Validation(def.Key, fmt.Sprintf("%q is not a boolean", raw))
		}
		return models.BooleanValue(b), nil
	case models.AttributeTypeFile:
		if strings.TrimSpace(raw) == "" {
			return zero, appErrors.Validation(def.Key, "file reference must be a non-empty path")
		}
		return models.FileRefValue(strings.TrimSpace(raw)), nil
	case models.AttributeTypeSelect:
		if !containsOption(def.ValidationRules.Options, raw) {
			return zero, appErrors.Validation(def.Key, fmt.Sprintf("%q is not one of the allowed options", raw))
		}
		return models.OptionsValue([]string{raw}), nil
	case models.AttributeTypeMultiselect:
		selected := splitOptions(rawInput, raw)
		if len(selected) == 0 {
			return zero, appErrors.Validation(def.Key, "at least one option must be selected")
		}
		for _, opt := range selected {
			if !containsOption(def.ValidationRules.Options, opt) {
				return zero, appErrors.Validation(def.Key, fmt.Sprintf("%q is not one of the allowed options", opt))
			}
		}
		return models.OptionsValue(selected), nil
	default:
		return zero, appErrors.Validation(def.Key, fmt.Sprintf("unsupported data type %q", def.DataType))
	}
}

func (s *CatalogService) validateText(def *models.AttributeDefinition, raw string) (models.AttributeValue, error) {
	var zero models.AttributeValue
	rules := def.ValidationRules
	if rules.MinLength != nil && len([]rune(raw)) < *rules.MinLength {
		return zero, appErrors.Validation(def.Key, fmt.Sprintf("must be at least %d characters", *rules.MinLength))
	}
	if rules.MaxLength != nil && len([]rune(raw)) > *rules.MaxLength {
		return zero, appErrors.Validation(def.Key, fmt.Sprintf("must be at most %d characters", *rules.MaxLength))
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			return zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "attribute pattern is invalid")
		}
		if !re.MatchString(raw) {
			return zero, appErrors.Validation(def.Key, "value does not match the required pattern")
		}
	}
	return models.TextValue(raw), nil
}

func (s *CatalogService) validateNumber(def *models.AttributeDefinition, rawInput interface{}, raw string) (models.AttributeValue, error) {
	var zero models.AttributeValue
	var parsed float64
	switch v := rawInput.(type) {
	case float64:
		parsed = v
	case float32:
		parsed = float64(v)
	case int:
		parsed = float64(v)
	case int64:
		parsed = float64(v)
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return zero, appErrors.Validation(def.Key, fmt.Sprintf("%q is not a number", raw))
		}
		parsed = f
	}
	rules := def.ValidationRules
	if rules.Min != nil && parsed < *rules.Min {
		return zero, appErrors.Validation(def.Key, fmt.Sprintf("must be at least %v", *rules.Min))
	}
	if rules.Max != nil && parsed > *rules.Max {
		return zero, appErrors.Validation(def.Key, fmt.Sprintf("must be at most %v", *rules.Max))
	}
	return models.NumberValue(parsed), nil
}

// ExportCatalogCSV produces the catalog as a downloadable CSV dataset.
func (s *CatalogService) ExportCatalogCSV(ctx context.Context) ([]byte, error) {
	defs, err := s.ListDefinitions(ctx, false)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"key", "data_type", "category", "required", "sensitive", "encrypted", "active", "created_by"},
	}
	for _, def := range defs {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"key":        def.Key,
			"data_type":  string(def.DataType),
			"category":   def.Category,
			"required":   strconv.FormatBool(def.Required),
			"sensitive":  strconv.FormatBool(def.Sensitive),
			"encrypted":  strconv.FormatBool(def.Encrypted),
			"active":     strconv.FormatBool(def.Active),
			"created_by": def.CreatedBy,
		})
	}
	exporter := export.NewCSVExporter()
	return exporter.Render(dataset)
}

func isValidDataType(t models.AttributeDataType) bool {
	switch t {
	case models.AttributeTypeText, models.AttributeTypeNumber, models.AttributeTypeDate,
		models.AttributeTypeBoolean, models.AttributeTypeFile, models.AttributeTypeSelect,
		models.AttributeTypeMultiselect:
		return true
	default:
		return false
	}
}

func stringify(input interface{}) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceBoolean(rawInput interface{}, raw string) (bool, error) {
	if b, ok := rawInput.(bool); ok {
		return b, nil
	}
	return strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
}

func containsOption(options []string, candidate string) bool {
	for _, opt := range options {
		if opt == candidate {
			return true
		}
	}
	return false
}

func splitOptions(rawInput interface{}, raw string) []string {
	var parts []string
	switch v := rawInput.(type) {
	case []string:
		parts = v
	case []interface{}:
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
	default:
		parts = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
