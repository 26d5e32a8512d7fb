package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itransmotors/carbot/internal/calculator"
	"github.com/itransmotors/carbot/internal/database"
)

type fakeSource struct {
	rows map[string][][]string
	errs map[string]error
}

func (f *fakeSource) Values(_ context.Context, sheet string) ([][]string, error) {
	if err := f.errs[sheet]; err != nil {
		return nil, err
	}
	return f.rows[sheet], nil
}

var testSheets = Sheets{Copart: "Copart", IAAI: "IAAI"}

func copartRows() [][]string {
	return [][]string{
		{"#", "Location", "Port", "Zip", "Rate"},
		{"1", "TX - DALLAS", "Houston", "75001", "$400-600"},
		{"2", "CA - LOS ANGELES", "Los Angeles", "90001", "300"},
	}
}

func iaaiRows() [][]string {
	return [][]string{
		{"#", "Location", "Port", "Zip", "Rate"},
		{"1", "FL - MIAMI", "Savannah", "33101", "350-450"},
	}
}

func newTestService(t *testing.T, src Source) (*Service, *database.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, src, testSheets, zap.NewNop()), db
}

func TestRefresh_Success(t *testing.T) {
	src := &fakeSource{rows: map[string][][]string{"Copart": copartRows(), "IAAI": iaaiRows()}}
	svc, db := newTestService(t, src)

	assert.Equal(t, 0, svc.Table().Len())

	history, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, database.SyncSuccess, history.Status)
	assert.Equal(t, 3, history.ItemsSynced)

	table := svc.Table()
	assert.Equal(t, 3, table.Len())
	_, ok := table.Lookup("IAAI: FL - MIAMI")
	assert.True(t, ok)

	stored, err := db.GetTariffs()
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	records, err := db.GetSyncHistory(5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.SyncSuccess, records[0].Status)
}

func TestRefresh_OneHouseMissing(t *testing.T) {
	src := &fakeSource{
		rows: map[string][][]string{"Copart": copartRows()},
		errs: map[string]error{"IAAI": errors.New("quota exceeded")},
	}
	svc, _ := newTestService(t, src)

	history, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, database.SyncPartial, history.Status)
	assert.Contains(t, history.ErrorMessage, "quota exceeded")
	assert.Equal(t, 2, svc.Table().Count(calculator.Copart))
	assert.Equal(t, 0, svc.Table().Count(calculator.IAAI))
}

func TestRefresh_NothingLoadedKeepsPreviousTable(t *testing.T) {
	src := &fakeSource{rows: map[string][][]string{"Copart": copartRows(), "IAAI": iaaiRows()}}
	svc, db := newTestService(t, src)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	before := svc.Table()

	src.rows = map[string][][]string{"Copart": {{"header"}}, "IAAI": nil}
	history, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTariffs)
	assert.Equal(t, database.SyncFailed, history.Status)

	assert.Same(t, before, svc.Table())

	stored, err := db.GetTariffs()
	require.NoError(t, err)
	assert.Len(t, stored, 3, "snapshot untouched")
}

func TestRefresh_NoSource(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	src := &fakeSource{rows: map[string][][]string{"Copart": copartRows(), "IAAI": iaaiRows()}}
	first, db := newTestService(t, src)
	_, err := first.Refresh(context.Background())
	require.NoError(t, err)

	restarted := NewService(db, nil, testSheets, zap.NewNop())
	n, err := restarted.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, first.Table().Entries(), restarted.Table().Entries())
}

func TestLoadSnapshot_Empty(t *testing.T) {
	svc, _ := newTestService(t, nil)

	n, err := svc.LoadSnapshot()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotNil(t, svc.Table())
}
