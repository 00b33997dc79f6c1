package student

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"schoolattend/internal/store"
)

// setupTestRepo starts a disposable Postgres with the schema applied.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	ctx := context.Background()

	pg, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations(ctx, "../../migrations"))

	return NewRepository(db)
}

func TestRepositoryLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	st, parent, err := repo.Create(ctx, Record{
		SchoolCode:  "shalom",
		ClassName:   "5",
		TagID:       "TAG-001",
		FullName:    "Asha",
		AdmissionNo: "ADM-1",
		Phone:       "9876543210",
		Status:      1,
		CreatedBy:   "web",
		FatherName:  "Ravi",
	})
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "Asha", st.FullName)
	require.NotNil(t, st.FatherName)
	assert.Equal(t, "Ravi", *st.FatherName)

	_, _, err = repo.Create(ctx, Record{FullName: "Other", TagID: "TAG-001", Status: 1})
	assert.ErrorIs(t, err, ErrDuplicateTag)
	_, _, err = repo.Create(ctx, Record{FullName: "Other", AdmissionNo: "ADM-1", Status: 1})
	assert.ErrorIs(t, err, ErrDuplicateAdmission)

	updated, err := repo.Update(ctx, st.ID, Patch{Status: Some("0")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Status)
	assert.Equal(t, "Asha", updated.FullName)
	require.NotNil(t, updated.TagID)
	assert.Equal(t, "TAG-001", *updated.TagID)
	require.NotNil(t, updated.FatherName)

	updated, err = repo.Update(ctx, st.ID, Patch{Status: Null(), Address: Some("12 Hill Rd")})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Status, "null status keeps the stored value")
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Ravi", *updated.FatherName)

	byTag, err := repo.FindByTag(ctx, " TAG-001 ")
	require.NoError(t, err)
	assert.Equal(t, st.ID, byTag.ID)

	parents := func() int {
		var n int
		require.NoError(t, repo.db.Client.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM student_parent_detail WHERE student_id = $1`, st.ID).Scan(&n))
		return n
	}
	require.Equal(t, 1, parents())

	require.NoError(t, repo.Delete(ctx, st.ID))
	assert.Equal(t, 0, parents(), "parent detail goes with the student")
	assert.ErrorIs(t, repo.Delete(ctx, st.ID), ErrNotFound)
	_, err = repo.Get(ctx, st.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryUpsertImported(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	id, inserted, err := repo.UpsertImported(ctx, Record{FullName: "First", AdmissionNo: "A-9", Status: 1})
	require.NoError(t, err)
	assert.True(t, inserted)

	again, inserted, err := repo.UpsertImported(ctx, Record{FullName: "Renamed", AdmissionNo: "A-9", Status: 1, Address: "Lane 4"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id, again)

	st, err := repo.FindByAdmission(ctx, "A-9")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", st.FullName)
	require.NotNil(t, st.Address)

	conflicts, err := repo.FindConflicts(ctx, []string{"A-9", "A-10"}, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "A-9", conflicts[0].AdmissionNo)
}
