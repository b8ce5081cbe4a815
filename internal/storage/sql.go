package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-gateway/pkg/db"
	"github.com/angelmondragon/storefront-gateway/pkg/db/models"
)

// SQLStore keeps state in the client_state table (postgres or sqlite).
type SQLStore struct {
	db  *gorm.DB
	tx  func(ctx context.Context, fn func(tx *gorm.DB) error) error
	now func() time.Time
}

// NewSQLStore wires the store to a pooled gorm client.
func NewSQLStore(client *db.Client) *SQLStore {
	return newSQLStore(client.DB(), client.WithTx, time.Now)
}

func newSQLStore(conn *gorm.DB, tx func(context.Context, func(*gorm.DB) error) error, now func() time.Time) *SQLStore {
	if now == nil {
		now = time.Now
	}
	return &SQLStore{db: conn, tx: tx, now: now}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	entry, err := s.find(s.db.WithContext(ctx), key, false)
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.upsert(s.db.WithContext(ctx), key, value, s.expiry(ttl))
}

func (s *SQLStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	created := false
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.purgeKeyIfExpired(tx, key); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.StateEntry{
			Key:       key,
			Value:     value,
			ExpiresAt: s.expiry(ttl),
		})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	return created, err
}

func (s *SQLStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	err := s.tx(ctx, func(tx *gorm.DB) error {
		entry, err := s.find(tx, key, true)
		expiresAt := s.expiry(ttl)
		switch {
		case errors.Is(err, ErrNotFound):
			count = 0
		case err != nil:
			return err
		default:
			parsed, parseErr := strconv.ParseInt(entry.Value, 10, 64)
			if parseErr != nil {
				return parseErr
			}
			count = parsed
			expiresAt = entry.ExpiresAt
		}
		count++
		return s.upsert(tx, key, strconv.FormatInt(count, 10), expiresAt)
	})
	return count, err
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("state_key IN ?", keys).Delete(&models.StateEntry{}).Error
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PurgeExpired removes rows whose ttl has elapsed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.StateEntry{})
	return res.RowsAffected, res.Error
}

func (s *SQLStore) find(conn *gorm.DB, key string, lock bool) (*models.StateEntry, error) {
	query := conn.Where("state_key = ? AND (expires_at IS NULL OR expires_at > ?)", key, s.now().UTC())
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var entry models.StateEntry
	if err := query.Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *SQLStore) upsert(conn *gorm.DB, key, value string, expiresAt *time.Time) error {
	entry := models.StateEntry{Key: key, Value: value, ExpiresAt: expiresAt}
	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQLStore) purgeKeyIfExpired(conn *gorm.DB, key string) error {
	return conn.Where("state_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, s.now().UTC()).
		Delete(&models.StateEntry{}).Error
}

func (s *SQLStore) expiry(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	at := s.now().UTC().Add(ttl)
	return &at
}
