package readstore

import (
	"context"

	"packsend-service/internal/domain/packsend"
	"packsend-service/internal/infra"

	"gorm.io/gorm"
)

type carrierContainerRow struct {
	ID         int64   `gorm:"column:id;primaryKey"`
	Lane       string  `gorm:"column:lane"`
	Code       string  `gorm:"column:code"`
	CapacityKg float64 `gorm:"column:capacity_kg"`
	TareKg     float64 `gorm:"column:tare_kg"`
}

func (carrierContainerRow) TableName() string { return "carrier_containers" }

// CapacityReadStore serves carrier container metadata to the parcel planner.
type CapacityReadStore struct {
	db *gorm.DB
}

func NewCapacityReadStore(db *gorm.DB) *CapacityReadStore {
	return &CapacityReadStore{db: db}
}

// CapacitiesForLane returns containers ordered by ascending capacity.
func (r *CapacityReadStore) CapacitiesForLane(ctx context.Context, lane string) ([]packsend.ContainerCapacity, error) {
	var rows []carrierContainerRow
	err := r.db.WithContext(ctx).
		Where("lane = ?", lane).
		Order("capacity_kg ASC").
		Order("code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load carrier containers", err)
	}

	out := make([]packsend.ContainerCapacity, 0, len(rows))
	for _, row := range rows {
		out = append(out, packsend.ContainerCapacity{
			Code:       row.Code,
			CapacityKg: row.CapacityKg,
			TareKg:     row.TareKg,
		})
	}
	return out, nil
}
