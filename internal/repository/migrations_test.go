package repository

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/database"
)

func TestVersionBeforeDirty(t *testing.T) {
	tests := []struct {
		dirty int
		want  int
	}{
		{dirty: 1, want: database.NilVersion},
		{dirty: 0, want: database.NilVersion},
		{dirty: 2, want: 1},
		{dirty: 20240101, want: 20240100},
	}

	for _, tt := range tests {
		if got := versionBefore(tt.dirty); got != tt.want {
			t.Fatalf("versionBefore(%d) = %d, want %d", tt.dirty, got, tt.want)
		}
	}
}

func TestRunMigrationsRejectsBadURL(t *testing.T) {
	if err := RunMigrations("not-a-database-url", "migrations"); err == nil {
		t.Fatalf("expected an error for an unusable database URL")
	}
}
