// Package store provides gorm-backed persistence for sessions, messages,
// and the token ledger.
package store

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/samrititabalt/supportchat/internal/model"
)

// Sentinel errors surfaced by the stores. Services translate these into
// user-facing failures without partial writes.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrAlreadyAssigned     = errors.New("session already assigned to an agent")
	ErrNotSessionAgent     = errors.New("actor is not the session's current agent")
	ErrSessionCompleted    = errors.New("session is completed")
	ErrAlreadyDeleted      = errors.New("message already deleted")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Open opens the database and migrates the core schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.ChatSession{},
		&model.Message{},
		&model.Attachment{},
		&model.Customer{},
		&model.TokenTransaction{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}
