package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/transcriber/database"
)

// Document is the row layout of the SQL store. Version duplicates the
// document's own version field so compare-and-swap is a single UPDATE.
type Document struct {
	Key       string `gorm:"primaryKey;column:task_key;size:191"`
	Version   int64  `gorm:"not null"`
	Body      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Document) TableName() string { return "task_documents" }

// SQLStore keeps documents in one table through GORM.
type SQLStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLStore creates a store on an open, migrated database.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc Document
	err := s.db.WithContext(ctx).Where("task_key = ?", key).Take(&doc).Error
	if err != nil {
		return nil, s.translate("get", err)
	}
	return doc.Body, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, body []byte, expected int64) error {
	if err := checkNextVersion(body, expected); err != nil {
		return err
	}
	now := s.now().UTC()

	if expected == 0 {
		err := s.db.WithContext(ctx).Create(&Document{Key: key, Version: 1, Body: body, UpdatedAt: now}).Error
		if database.IsDuplicateError(err) {
			return ErrVersionConflict
		}
		return s.translate("put", err)
	}

	res := s.db.WithContext(ctx).Model(&Document{}).
		Where("task_key = ? AND version = ?", key, expected).
		Updates(map[string]interface{}{"version": expected + 1, "body": body, "updated_at": now})
	if res.Error != nil {
		return s.translate("put", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, key)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string, expected int64) error {
	res := s.db.WithContext(ctx).
		Where("task_key = ? AND version = ?", key, expected).
		Delete(&Document{})
	if res.Error != nil {
		return s.translate("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := s.missOrConflict(ctx, key); !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// missOrConflict explains a zero-row UPDATE or DELETE.
func (s *SQLStore) missOrConflict(ctx context.Context, key string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Document{}).Where("task_key = ?", key).Count(&n).Error; err != nil {
		return s.translate("count", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *SQLStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&Document{}).
		Where("task_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("task_key").
		Pluck("task_key", &keys).Error
	if err != nil {
		return nil, s.translate("list", err)
	}
	return keys, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLStore) translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFoundError(err):
		return ErrNotFound
	case database.IsConnectionError(err), database.IsBusyError(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return unavailable(op, err)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
