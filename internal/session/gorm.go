package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/db"
)

const tokenRowID = 1

type tokenRow struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (tokenRow) TableName() string { return "session_tokens" }

// GormStore keeps the token in a one-row table and caches it in memory.
type GormStore struct {
	db *gorm.DB

	mu    sync.RWMutex
	token string
}

// Open connects to dsn (sqlite path or postgres URL) and prepares the token table.
func Open(ctx context.Context, dsn string) (*GormStore, error) {
	gdb, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewGormStore(ctx, gdb)
}

func NewGormStore(ctx context.Context, gdb *gorm.DB) (*GormStore, error) {
	if err := gdb.WithContext(ctx).AutoMigrate(&tokenRow{}); err != nil {
		return nil, fmt.Errorf("migrate session table: %w", err)
	}
	return &GormStore{db: gdb}, nil
}

func (s *GormStore) Load(ctx context.Context) (string, error) {
	var row tokenRow
	err := s.db.WithContext(ctx).First(&row, tokenRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.setCached("")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session token: %w", err)
	}
	s.setCached(row.Token)
	return row.Token, nil
}

func (s *GormStore) Save(ctx context.Context, token string) error {
	row := tokenRow{ID: tokenRowID, Token: token}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	s.setCached(token)
	return nil
}

func (s *GormStore) Clear(ctx context.Context) error {
	s.setCached("")
	if err := s.db.WithContext(ctx).Delete(&tokenRow{}, tokenRowID).Error; err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

func (s *GormStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) setCached(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}
