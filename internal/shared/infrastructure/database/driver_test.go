package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		url  string
		want Driver
	}{
		{url: "", want: DriverSQLite},
		{url: "takt.db", want: DriverSQLite},
		{url: "/var/lib/takt/plans.sqlite", want: DriverSQLite},
		{url: "/var/lib/takt/plans.sqlite3", want: DriverSQLite},
		{url: "sqlite:///var/lib/takt/plans.db", want: DriverSQLite},
		{url: "file:takt.db?mode=memory", want: DriverSQLite},
		{url: "postgres://takt:secret@db:5432/takt", want: DriverPostgres},
		{url: "postgresql://takt:secret@db:5432/takt", want: DriverPostgres},
		// Anything else that looks like a server DSN goes to Postgres.
		{url: "host=db user=takt dbname=takt", want: DriverPostgres},
	}

	for _, tt := range tests {
		name := tt.url
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDriver(tt.url))
		})
	}
}

func TestDriver_String(t *testing.T) {
	assert.Equal(t, "postgres", DriverPostgres.String())
	assert.Equal(t, "sqlite", DriverSQLite.String())
}

func TestDriver_IsValid(t *testing.T) {
	assert.True(t, DriverPostgres.IsValid())
	assert.True(t, DriverSQLite.IsValid())
	assert.False(t, Driver("mysql").IsValid())
	assert.False(t, Driver("").IsValid())
}
