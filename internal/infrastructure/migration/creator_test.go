package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add late fee column", "add_late_fee_column"},
		{"Add-Late-Fee", "add_late_fee"},
		{"ADD__AMENDMENT__INDEX", "add_amendment_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"v2 payments", "v2_payments"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 9, 3, 0, 0, time.UTC)

	mf, err := createMigrationAt(dir, "add payment index", "Index payments by bank", now)
	require.NoError(t, err)

	assert.Equal(t, "20250301090300", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20250301090300_add_payment_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20250301090300_add_payment_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add payment index\n")
	assert.Contains(t, string(up), "-- Description: Index payments by bank")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := createMigrationAt(dir, "dup", "", now)
	require.NoError(t, err)
	_, err = createMigrationAt(dir, "dup", "", now)
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20250301090100_b.up.sql", "20250301090100_b.down.sql",
		"20250301090000_a.up.sql", "20250301090000_a.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	got, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20250301090000_a", "20250301090100_b"}, got)
}

func TestListMigrations_ShippedSet(t *testing.T) {
	got, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20250301090000_create_financings",
		"20250301090100_create_financing_payments",
		"20250301090200_create_financing_amendments",
	}, got)
}

func TestListMigrations_MissingDir(t *testing.T) {
	got, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
