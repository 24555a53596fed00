package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/haksa-io/student-records-api/internal/models"
)

// AttributeDefinitionRepository manages the attribute catalog.
type AttributeDefinitionRepository struct {
	db *sqlx.DB
}

// NewAttributeDefinitionRepository constructs the repository.
func NewAttributeDefinitionRepository(db *sqlx.DB) *AttributeDefinitionRepository {
	return &AttributeDefinitionRepository{db: db}
}

const attributeDefinitionColumns = `id, key, display_name, data_type, required, sensitive, encrypted, validation_rules, category, ordering, active, created_by, created_at, updated_at`

// Create inserts a new definition row.
func (r *AttributeDefinitionRepository) Create(ctx context.Context, def *models.AttributeDefinition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	const query = `INSERT INTO attribute_definitions (id, key, display_name, data_type, required, sensitive, encrypted, validation_rules, category, ordering, active, created_by, created_at, updated_at)
VALUES (:id, :key, :display_name, :data_type, :required, :sensitive, :encrypted, :validation_rules, :category, :ordering, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("create attribute definition: %w", err)
	}
	return nil
}

// FindByKey fetches a definition by its key regardless of active state.
func (r *AttributeDefinitionRepository) FindByKey(ctx context.Context, key string) (*models.AttributeDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM attribute_definitions WHERE key = $1`, attributeDefinitionColumns)
	var def models.AttributeDefinition
	if err := r.db.GetContext(ctx, &def, query, key); err != nil {
		return nil, err
	}
	return &def, nil
}

// ExistsByKey reports whether a definition with the key exists.
func (r *AttributeDefinitionRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM attribute_definitions WHERE key = $1)`
	if err := r.db.GetContext(ctx, &exists, query, key); err != nil {
		return false, fmt.Errorf("check attribute key: %w", err)
	}
	return exists, nil
}

// List returns definitions ordered by category and display ordering.
// When activeOnly is set, deactivated definitions are skipped.
func (r *AttributeDefinitionRepository) List(ctx context.Context, activeOnly bool) ([]models.AttributeDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM attribute_definitions`, attributeDefinitionColumns)
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY category ASC, ordering ASC, key ASC`
	var defs []models.AttributeDefinition
	if err := r.db.SelectContext(ctx, &defs, query); err != nil {
		return nil, fmt.Errorf("list attribute definitions: %w", err)
	}
	return defs, nil
}

// Deactivate soft-deletes a definition; stored values keep referencing it.
func (r *AttributeDefinitionRepository) Deactivate(ctx context.Context, key string) error {
	const query = `UPDATE attribute_definitions SET active = false, updated_at = $2 WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate attribute definition: %w", err)
	}
	return nil
}
