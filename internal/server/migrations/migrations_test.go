package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_UsersTable(t *testing.T) {
	b, err := fs.ReadFile(Migrations, "00001_create_users.sql")
	require.NoError(t, err)

	sql := string(b)
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "CONSTRAINT users_pkey PRIMARY KEY (username)")
	assert.Contains(t, sql, "CONSTRAINT users_email_key UNIQUE (email)")
	assert.Contains(t, sql, "-- +goose Down")
}
