package database

import (
	"testing"

	"github.com/tramdoc/tramdoc/internal/models"
	"gorm.io/gorm"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
	if err := Ping(db); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	for _, table := range []string{"accounts", "password_reset_otps"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	if !db.Migrator().HasIndex(&models.Account{}, "idx_accounts_provider_identity") {
		t.Fatalf("expected provider identity index")
	}

	// Running twice must be harmless.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second auto migrate failed: %v", err)
	}
}

func TestAutoMigrateNilHandle(t *testing.T) {
	if err := AutoMigrate(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:database_pkg_test?mode=memory&cache=shared&_foreign_keys=1"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
