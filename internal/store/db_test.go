package store

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		wantConstraint string
		wantOK         bool
	}{
		{
			name:           "direct pg error",
			err:            &pgconn.PgError{Code: "23505", ConstraintName: "student_master_tag_id_key"},
			wantConstraint: "student_master_tag_id_key",
			wantOK:         true,
		},
		{
			name:           "wrapped pg error",
			err:            fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "student_master_admission_no_key"}),
			wantConstraint: "student_master_admission_no_key",
			wantOK:         true,
		},
		{
			name: "other sqlstate",
			err:  &pgconn.PgError{Code: "23503"},
		},
		{
			name: "plain error",
			err:  fmt.Errorf("boom"),
		},
		{
			name: "nil",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			constraint, ok := UniqueViolation(tc.err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantConstraint, constraint)
		})
	}
}

func TestNullString(t *testing.T) {
	assert.False(t, NullString("   ").Valid)
	ns := NullString("  TAG01 ")
	assert.True(t, ns.Valid)
	assert.Equal(t, "TAG01", ns.String)
}
