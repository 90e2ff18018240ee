package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OkarFabianTheWise/nifes/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB opens the sqlite database at path and migrates the schema.
// A single connection is kept so concurrent writers queue instead of
// failing with SQLITE_BUSY.
func InitDB(path string) (*gorm.DB, error) {
	d, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	sqlDB, err := d.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := d.AutoMigrate(&models.Member{}, &models.Session{}, &models.AttendanceRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// withPragmas sets the busy timeout and foreign key enforcement in the DSN
// so every connection the pool opens carries them.
func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_foreign_keys=on"
}

func SetDB(d *gorm.DB) { db = d }

func GetDB() *gorm.DB { return db }

// Reset removes every row, children first.
func Reset(d *gorm.DB) error {
	return d.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.AttendanceRecord{}, &models.Session{}, &models.Member{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint rejection from the store.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}
