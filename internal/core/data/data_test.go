package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Creates a database for testing. For the sake of simplicity, this only uses the
// SQLite engine and creates a new database on every invocation since it is relatively
// cheap to do so (especially given the low number of tests). If this ever becomes
// prohibitive due to performance, this approach will need to be reevaluated.
func setUpDatabase(t *testing.T) *gorm.DB {
	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}

	if err = db.AutoMigrate(
		&Account{},
		&BannedPlayer{},
		&Recording{},
		&Record{},
	); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		engine  string
		wantErr bool
	}{
		{name: "sqlite engine", engine: "sqlite"},
		{name: "engine defaults to sqlite", engine: ""},
		{name: "unsupported engine", engine: "cockroach", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Initialize(tt.engine, filepath.Join(t.TempDir(), "test.db"), false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Initialize() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if err := Shutdown(db); err != nil {
				t.Errorf("Shutdown() unexpected error: %v", err)
			}
		})
	}
}
