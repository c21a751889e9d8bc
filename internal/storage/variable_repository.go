package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormVariableRepository struct {
	db *gorm.DB
}

// NewVariableRepository returns a VariableRepository backed by db.
func NewVariableRepository(db *gorm.DB) VariableRepository {
	return &gormVariableRepository{db: db}
}

// Upsert records the last-known value of a writable NUT variable, used by
// the command executor's SetVariable path so the bus and UI have
// a row to diff against without a round-trip NUT query.
func (r *gormVariableRepository) Upsert(ctx context.Context, upsName, variableName, value string) error {
	row := UPSVariable{
		UPSName:      upsName,
		VariableName: variableName,
		Value:        value,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ups_name"}, {Name: "variable_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("storage: variables: upsert: %w", err)
	}
	return nil
}

func (r *gormVariableRepository) Get(ctx context.Context, upsName, variableName string) (*UPSVariable, error) {
	var row UPSVariable
	err := r.db.WithContext(ctx).
		First(&row, "ups_name = ? AND variable_name = ?", upsName, variableName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: variables: get: %w", err)
	}
	return &row, nil
}

func (r *gormVariableRepository) ListByUPS(ctx context.Context, upsName string) ([]UPSVariable, error) {
	var rows []UPSVariable
	if err := r.db.WithContext(ctx).
		Where("ups_name = ?", upsName).
		Order("variable_name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: variables: list by ups: %w", err)
	}
	return rows, nil
}
