// Package sqlite backs the settings registry (device id, identity, remote
// credentials, watermarks) with an embedded database, the durable stand-in
// for platform key-value storage.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atvirokodosprendimai/rostersync/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

type settingModel struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (settingModel) TableName() string {
	return "settings"
}

type SettingsRepository struct {
	db *gormsqlite.DB
}

func NewSettingsRepository(db *gormsqlite.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var model settingModel
	err := r.db.R.WithContext(ctx).Where("key = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return model.Value, nil
}

func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	model := settingModel{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.W.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context, key string) (bool, error) {
	res := r.db.W.WithContext(ctx).Where("key = ?", key).Delete(&settingModel{})
	if res.Error != nil {
		return false, fmt.Errorf("delete setting: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SettingsRepository) Clear(ctx context.Context) error {
	if err := r.db.W.WithContext(ctx).Where("1 = 1").Delete(&settingModel{}).Error; err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)
