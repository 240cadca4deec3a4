// Package sqlite is the single-file knowledge base backend for local use,
// built on gorm and the CGO-free glebarez/sqlite driver.
package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// knowledgeBaseRow is the persisted form of domain.KnowledgeBase.
type knowledgeBaseRow struct {
	ID             string    `gorm:"primaryKey"`
	OwnerID        string    `gorm:"not null;uniqueIndex:idx_knowledge_bases_owner_name"`
	Name           string    `gorm:"not null;uniqueIndex:idx_knowledge_bases_owner_name"`
	Data           string    `gorm:"not null"`
	DatasetVersion string    `gorm:"not null;default:''"`
	ContentHash    string    `gorm:"not null"`
	ItemCount      int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (knowledgeBaseRow) TableName() string { return "knowledge_bases" }

// itemRow is the persisted form of domain.KnowledgeBaseItem.
type itemRow struct {
	ID              string    `gorm:"primaryKey"`
	KnowledgeBaseID string    `gorm:"not null;index:idx_knowledge_base_items_kb"`
	Position        int       `gorm:"not null;default:0"`
	PageContent     string    `gorm:"not null"`
	Metadata        string    `gorm:"not null"`
	ContentHash     string    `gorm:"not null"`
	IdentityKey     *string
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (itemRow) TableName() string { return "knowledge_base_items" }

// DSN builds a connection string for a database file with the pragmas the
// store relies on.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens the database and migrates the schema. Writers are serialised
// through a single connection.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables and indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&knowledgeBaseRow{}, &itemRow{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// gorm tags cannot express a partial index
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_base_items_identity
		ON knowledge_base_items (knowledge_base_id, identity_key)
		WHERE identity_key IS NOT NULL`).Error
	if err != nil {
		return fmt.Errorf("create identity index: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
