package datastore

import (
	"context"

	"gorm.io/gorm/clause"
)

// LoadAll implements params.Store, returning every persisted Setting row as
// a key->value map.
func (s *Store) LoadAll(ctx context.Context) (map[string]string, error) {
	var rows []Setting
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, dbError(err, "load-settings")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// SaveValue implements params.Store, upserting by key.
func (s *Store) SaveValue(ctx context.Context, key, value string) error {
	row := Setting{Key: key, Value: value}
	return withRetry(ctx, 3, func() error {
		return dbError(s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&row).Error, "save-setting")
	})
}
