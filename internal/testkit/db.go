// Package testkit holds helpers shared by package tests.
package testkit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/OkarFabianTheWise/nifes/internal/store"

	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.InitDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// StaticRenderer returns a fixed data URL, or Err when set.
type StaticRenderer struct {
	Err error
}

func (r StaticRenderer) DataURL(content string) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	return "data:image/png;base64,stub:" + content, nil
}
