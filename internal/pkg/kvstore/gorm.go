package kvstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRow is the relational shape of one store entry.
type KVRow struct {
	Key     string `gorm:"primaryKey;size:191"`
	Payload string `gorm:"type:longtext"`
}

func (KVRow) TableName() string { return "kv_lists" }

// gormStore backs the list store with a single MySQL table.
type gormStore struct {
	db *gorm.DB
}

// NewGorm returns a Store backed by the given gorm connection.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, key string) (string, error) {
	var row KVRow
	err := s.db.WithContext(ctx).First(&row, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Payload, nil
}

func (s *gormStore) Set(ctx context.Context, key, value string) error {
	row := KVRow{Key: key, Payload: value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload"}),
		}).
		Create(&row).Error
}

func (s *gormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&KVRow{}, "`key` = ?", key).Error
}
