package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-classroom/internal/domain"
)

// MigrateDB applies the schema for every engine-owned table. The users table
// belongs to the identity service and is intentionally left out.
func MigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Room{},
		&domain.Participant{},
		&domain.CodeDocument{},
		&domain.EditRecord{},
		&domain.ChatMessage{},
		&domain.Notification{},
		&domain.TutorSession{},
	)
	if err != nil {
		return fmt.Errorf("setup: failed to migrate database: %w", err)
	}
	logrus.Info("Database migrated")
	return nil
}
