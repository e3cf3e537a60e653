package db

import (
	"fmt"

	"gorm.io/gorm"

	psy "github.com/yungbote/neurobridge-psychometrics/internal/domain/psychometrics"
)

// AutoMigrateAll creates the engine's tables. ledger_events is owned by the
// evaluation ledger; it is migrated here so single-node and test setups work,
// and AutoMigrate never drops columns another writer relies on.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Ability
		&psy.AbilityProfile{},
		&psy.AbilityEstimateRecord{},

		// Items
		&psy.ItemParameters{},
		&psy.ItemResponse{},

		// Ledger (read-only projection)
		&psy.LedgerEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
