package test

import (
	"os"
	"testing"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
)

const envKeyPostgresDSN = "ENERGY_TEST_POSTGRES_DSN"

func TestPostgresMigration(t *testing.T) {
	common.SetTestLoggerNop()

	dsn := os.Getenv(envKeyPostgresDSN)
	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" || dsn == "" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS and ENERGY_TEST_POSTGRES_DSN must be set")
	}

	dialector, err := db.UsePostgresDialector(dsn)
	if err != nil {
		t.Fatalf("Failed to build postgres dialector: %v", err)
	}

	conn, err := db.Open(dialector)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("Failed to migrate postgres: %v", err)
	}

	if !conn.Migrator().HasIndex("usage_sessions", db.OneActiveSessionIndex) {
		t.Errorf("Expected index %q to exist", db.OneActiveSessionIndex)
	}
}
