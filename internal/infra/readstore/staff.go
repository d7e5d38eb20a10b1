package readstore

import (
	"context"
	"errors"

	"packsend-service/internal/infra"

	"gorm.io/gorm"
)

type staffRow struct {
	ID          string `gorm:"column:id;primaryKey"`
	DisplayName string `gorm:"column:display_name"`
	Active      bool   `gorm:"column:active"`
}

func (staffRow) TableName() string { return "staff" }

// StaffReadStore resolves staff ids to display names for lock conflict messages.
type StaffReadStore struct {
	db *gorm.DB
}

func NewStaffReadStore(db *gorm.DB) *StaffReadStore {
	return &StaffReadStore{db: db}
}

func (r *StaffReadStore) ResolveName(ctx context.Context, actorID string) (string, error) {
	var row staffRow
	err := r.db.WithContext(ctx).
		Select("id", "display_name", "active").
		Where("id = ?", actorID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", infra.WrapRepoErr("staff member not found", err, infra.KindNotFound)
		}
		return "", infra.WrapRepoErr("failed to resolve staff name", err)
	}
	return row.DisplayName, nil
}
