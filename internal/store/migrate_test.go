// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package store

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate/helmgate/pkg/errutil"
)

type fakeMigrate struct {
	upErr     error
	downErr   error
	version   uint
	dirty     bool
	verErr    error
	sourceErr error
	dbErr     error
}

func (f *fakeMigrate) Up() error                   { return f.upErr }
func (f *fakeMigrate) Down() error                 { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) { return f.version, f.dirty, f.verErr }
func (f *fakeMigrate) Close() (error, error)        { return f.sourceErr, f.dbErr }

func TestMigratorUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		upErr    error
		wantCode string
	}{
		{name: "applies pending migrations"},
		{name: "no pending migrations is not an error", upErr: migrate.ErrNoChange},
		{name: "driver failure is wrapped", upErr: errors.New("connection refused"), wantCode: "MIGRATION_UP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Migrator{m: &fakeMigrate{upErr: tt.upErr}}
			err := m.Up()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigratorDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		downErr  error
		wantCode string
	}{
		{name: "rolls back migrations"},
		{name: "empty schema is not an error", downErr: migrate.ErrNoChange},
		{name: "driver failure is wrapped", downErr: errors.New("connection refused"), wantCode: "MIGRATION_DOWN_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Migrator{m: &fakeMigrate{downErr: tt.downErr}}
			err := m.Down()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigratorVersion(t *testing.T) {
	t.Parallel()

	t.Run("reports current version", func(t *testing.T) {
		t.Parallel()

		m := &Migrator{m: &fakeMigrate{version: 3, dirty: true}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(3), version)
		assert.True(t, dirty)
	})

	t.Run("pristine database reports version zero", func(t *testing.T) {
		t.Parallel()

		m := &Migrator{m: &fakeMigrate{verErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("driver failure is wrapped", func(t *testing.T) {
		t.Parallel()

		m := &Migrator{m: &fakeMigrate{verErr: errors.New("connection refused")}}
		_, _, err := m.Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigratorClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sourceErr error
		dbErr     error
		wantCode  string
	}{
		{name: "releases both handles"},
		{name: "source failure is wrapped", sourceErr: errors.New("source busy"), wantCode: "MIGRATION_CLOSE_FAILED"},
		{name: "database failure is wrapped", dbErr: errors.New("connection reset"), wantCode: "MIGRATION_CLOSE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &Migrator{m: &fakeMigrate{sourceErr: tt.sourceErr, dbErr: tt.dbErr}}
			err := m.Close()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestNewMigratorRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewMigrator("not-a-database-url")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}
