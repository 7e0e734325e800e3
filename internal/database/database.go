package database

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"xsolla-tools/internal/models"
)

// Initialize opens the run journal. postgres:// URLs use Postgres, anything
// else is a SQLite file path.
func Initialize(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		dialector = postgres.Open(databaseURL)
	} else {
		dialector = sqlite.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}

	// Auto migrate the schema
	err = db.AutoMigrate(
		&models.TaskRun{},
		&models.PriceSnapshot{},
	)
	if err != nil {
		return nil, err
	}

	logrus.WithField("database", databaseURL).Debug("Journal initialized")
	return db, nil
}
