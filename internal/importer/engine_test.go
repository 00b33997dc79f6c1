package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schoolattend/internal/config"
	"schoolattend/internal/student"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindConflicts(ctx context.Context, admissions, tags []string) ([]student.Conflict, error) {
	args := m.Called(ctx, admissions, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]student.Conflict), args.Error(1)
}

func (m *MockStore) UpsertImported(ctx context.Context, rec student.Record) (int64, bool, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockStore) Create(ctx context.Context, rec student.Record) (student.Student, *student.Parent, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(student.Student), nil, args.Error(1)
}

func byAdmission(no string) interface{} {
	return mock.MatchedBy(func(rec student.Record) bool { return rec.AdmissionNo == no })
}

func TestReconcileRejectsBatchDuplicates(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())

	_, err := engine.Reconcile(context.Background(), []Row{
		{Line: 2, FullName: "A", AdmissionNo: "A1", TagID: "T1"},
		{Line: 3, FullName: "B", AdmissionNo: " A1 ", TagID: "T2"},
		{Line: 4, FullName: "C", AdmissionNo: "A3", TagID: "T2"},
		{Line: 5, FullName: "D"},
		{Line: 6, FullName: "E"},
	})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.False(t, dup.InStore)
	assert.Equal(t, []string{"A1"}, dup.Admissions)
	assert.Equal(t, []string{"T2"}, dup.Tags)
	store.AssertNotCalled(t, "FindConflicts", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpsertImported", mock.Anything, mock.Anything)
}

func TestReconcileRejectsStoreDuplicates(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())

	store.On("FindConflicts", mock.Anything, []string{"A1", "A2"}, []string{"T1"}).
		Return([]student.Conflict{{StudentID: 9, AdmissionNo: "A2", TagID: "OLD"}}, nil)

	_, err := engine.Reconcile(context.Background(), []Row{
		{Line: 2, FullName: "A", AdmissionNo: "A1", TagID: "T1"},
		{Line: 3, FullName: "B", AdmissionNo: "A2"},
	})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.True(t, dup.InStore)
	assert.Equal(t, []string{"A2"}, dup.Admissions)
	assert.Empty(t, dup.Tags)
	store.AssertNotCalled(t, "UpsertImported", mock.Anything, mock.Anything)
}

func TestReconcileAggregatesRowOutcomes(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())

	store.On("FindConflicts", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("UpsertImported", mock.Anything, byAdmission("A1")).Return(int64(1), true, nil)
	store.On("UpsertImported", mock.Anything, byAdmission("A2")).Return(int64(2), false, nil)
	store.On("UpsertImported", mock.Anything, byAdmission("A3")).Return(int64(0), false, student.ErrDuplicateTag)
	store.On("UpsertImported", mock.Anything, byAdmission("")).Return(int64(5), true, nil)

	res, err := engine.Reconcile(context.Background(), []Row{
		{Line: 2, FullName: "A", AdmissionNo: "A1", Phone: "98765 43210"},
		{Line: 3, FullName: "B", AdmissionNo: "A2"},
		{Line: 4, FullName: "C", AdmissionNo: "A3", TagID: "T3"},
		{Line: 5, AdmissionNo: "A4"},
		{Line: 6, FullName: "No admission"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []RowError{
		{Row: 4, Error: "Tag ID already exists"},
		{Row: 5, Error: "Full name is required"},
	}, res.Errors)

	store.AssertCalled(t, "UpsertImported", mock.Anything, mock.MatchedBy(func(rec student.Record) bool {
		return rec.AdmissionNo == "A1" && rec.Phone == "9876543210" && rec.CreatedBy == "excel-import"
	}))
}

func TestReconcileStopsOnCancel(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())
	store.On("FindConflicts", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Reconcile(ctx, []Row{{Line: 2, FullName: "A", AdmissionNo: "A1"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Inserted)
	store.AssertNotCalled(t, "UpsertImported", mock.Anything, mock.Anything)
}

func TestReconcileEmpty(t *testing.T) {
	engine := NewEngine(new(MockStore), config.DefaultValues())
	_, err := engine.Reconcile(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestReconcileStorageErrorAborts(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())
	store.On("FindConflicts", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := engine.Reconcile(context.Background(), []Row{{Line: 2, FullName: "A", AdmissionNo: "A1"}})
	assert.Error(t, err)
	var dup *DuplicateError
	assert.False(t, errors.As(err, &dup))
}

func TestBulkCreatesEachRow(t *testing.T) {
	store := new(MockStore)
	engine := NewEngine(store, config.DefaultValues())

	store.On("Create", mock.Anything, byAdmission("A1")).Return(student.Student{ID: 11}, nil)
	store.On("Create", mock.Anything, byAdmission("A2")).Return(student.Student{}, student.ErrDuplicateAdmission)

	res, err := engine.Bulk(context.Background(), []Row{
		{Line: 1, FullName: "A", AdmissionNo: "A1"},
		{Line: 2, FullName: "B", AdmissionNo: "A2"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, res.Inserted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Admission No already exists", res.Errors[0].Error)
	assert.Equal(t, "A2", res.Errors[0].Row.AdmissionNo)
	store.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(rec student.Record) bool {
		return rec.CreatedBy == "import" && rec.Status == 1
	}))
}
