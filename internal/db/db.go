package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/fkoehle/habit-coach/internal/chat"
	"github.com/fkoehle/habit-coach/internal/habit"
	"github.com/fkoehle/habit-coach/internal/models"
)

// Open connects to MySQL when the DSN looks like a MySQL DSN, otherwise
// treats it as a sqlite path. sqlite keeps local development and tests
// dependency-free.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dialector = mysql.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// Migrate creates/updates all tables owned by this service.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&habit.Habit{},
		&chat.Message{},
		&chat.Job{},
	)
}
