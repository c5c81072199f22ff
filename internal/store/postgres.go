package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type kvRecord struct {
	Key       string `gorm:"primaryKey;size:191"`
	Version   int64  `gorm:"not null"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvRecord) TableName() string { return "kv_records" }

type listItem struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Key       string `gorm:"size:191;index"`
	Value     []byte `gorm:"not null"`
	CreatedAt time.Time
}

func (listItem) TableName() string { return "kv_list_items" }

// Postgres keeps records in one table with a version column; writes are
// conditional updates on that column.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewPostgresFromDB(db)
}

// NewPostgresFromDB wraps an open connection and migrates the tables.
func NewPostgresFromDB(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&kvRecord{}, &listItem{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (Entry, error) {
	var rec kvRecord
	err := p.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{Version: rec.Version, Value: rec.Value}, nil
}

func (p *Postgres) Create(ctx context.Context, key string, value []byte) error {
	res := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&kvRecord{Key: key, Version: 1, Value: value})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrExists
	}
	return nil
}

func (p *Postgres) CompareAndSwap(ctx context.Context, key string, version int64, value []byte) (int64, error) {
	next := version + 1
	res := p.db.WithContext(ctx).
		Model(&kvRecord{}).
		Where("key = ? AND version = ?", key, version).
		Updates(map[string]any{"version": next, "value": value, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 1 {
		return next, nil
	}
	if _, err := p.Get(ctx, key); err != nil {
		return 0, err
	}
	return 0, ErrConcurrentModification
}

func (p *Postgres) Push(ctx context.Context, key string, value []byte) error {
	return p.db.WithContext(ctx).Create(&listItem{Key: key, Value: value}).Error
}

func (p *Postgres) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	db := p.db.WithContext(ctx)
	var n int64
	if err := db.Model(&listItem{}).Where("key = ?", key).Count(&n).Error; err != nil {
		return nil, err
	}
	lo, hi, ok := bounds(n, start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	var items []listItem
	err := db.Where("key = ?", key).
		Order("id ASC").
		Offset(int(lo)).
		Limit(int(hi - lo + 1)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(items))
	for _, it := range items {
		out = append(out, it.Value)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
