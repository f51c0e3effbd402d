// Package orgstore persists alias ownership and ingested email records
// in Postgres.
package orgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrAliasNotFound means no active alias row matches the requested
// alias.
var ErrAliasNotFound = errors.New("alias not found")

// OrgAlias maps an inbound alias to the organization that owns it.
type OrgAlias struct {
	ID        uint   `gorm:"primaryKey"`
	Alias     string `gorm:"uniqueIndex;size:128;not null"`
	OrgID     string `gorm:"index;size:64;not null"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InboundEmail is one ingested email. MessageID carries the idempotency
// guarantee: redelivered events collapse onto the same row.
type InboundEmail struct {
	ID              uint    `gorm:"primaryKey"`
	MessageID       string  `gorm:"uniqueIndex;size:512;not null"`
	Alias           string  `gorm:"index;size:128;not null"`
	OrgID           string  `gorm:"index;size:64;not null"`
	FromAddress     string  `gorm:"size:512"`
	ToAddress       string  `gorm:"size:512"`
	Subject         string  `gorm:"size:1024"`
	TextBody        *string `gorm:"type:text"`
	HTMLBody        *string `gorm:"type:text"`
	RawRef          string  `gorm:"size:1024"`
	CorrelationID   string  `gorm:"size:64"`
	AttachmentCount int
	ReceivedAt      time.Time
	CreatedAt       time.Time
}

// Store wraps the Postgres connection.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and configures the connection pool.
func Open(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return &Store{db: db}, nil
}

// New wraps an existing gorm handle, for tests.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the schema.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&OrgAlias{}, &InboundEmail{})
}

// ActiveAlias looks up an active alias row.
func (s *Store) ActiveAlias(ctx context.Context, alias string) (*OrgAlias, error) {
	var row OrgAlias
	err := s.db.WithContext(ctx).
		Where("alias = ? AND active = ?", alias, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAliasNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up alias: %w", err)
	}
	return &row, nil
}

// SaveInboundEmail inserts one email record. A duplicate MessageID is
// not an error; created reports whether this call inserted the row.
func (s *Store) SaveInboundEmail(ctx context.Context, email *InboundEmail) (created bool, err error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).
		Create(email)
	if result.Error != nil {
		return false, fmt.Errorf("save inbound email: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
