package database

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itransmotors/carbot/internal/calculator"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSyncHistory(t *testing.T) {
	db := openTestDB(t)

	first := &SyncHistory{SyncType: "tariffs", Status: SyncRunning, StartedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.CreateSyncHistory(first))
	assert.NotZero(t, first.ID)

	done := time.Now()
	first.Status = SyncSuccess
	first.ItemsSynced = 42
	first.CompletedAt = &done
	require.NoError(t, db.UpdateSyncHistory(first))

	second := &SyncHistory{SyncType: "tariffs", Status: SyncFailed, ErrorMessage: "boom", StartedAt: time.Now()}
	require.NoError(t, db.CreateSyncHistory(second))

	history, err := db.GetSyncHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, "boom", history[0].ErrorMessage)
	assert.Nil(t, history[0].CompletedAt)
	assert.Equal(t, SyncSuccess, history[1].Status)
	assert.Equal(t, 42, history[1].ItemsSynced)
	assert.NotNil(t, history[1].CompletedAt)

	limited, err := db.GetSyncHistory(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReplaceTariffs(t *testing.T) {
	db := openTestDB(t)

	first := []calculator.TariffEntry{
		{Auction: calculator.Copart, Location: "TX - DALLAS", Port: "Houston", Rate: calculator.RateRange{Lower: 400, Upper: 600}},
		{Auction: calculator.IAAI, Location: "FL - MIAMI", Port: "Savannah", Rate: calculator.RateRange{Lower: 350, Upper: 450}},
	}
	require.NoError(t, db.ReplaceTariffs(first))

	got, err := db.GetTariffs()
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []calculator.TariffEntry{
		{Auction: calculator.Copart, Location: "CA - FRESNO", Port: "Los Angeles", Rate: calculator.RateRange{Lower: 700, Upper: 900}},
	}
	require.NoError(t, db.ReplaceTariffs(second))

	got, err = db.GetTariffs()
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestSaveCalculation_Plain(t *testing.T) {
	db := openTestDB(t)

	calc := &Calculation{
		StaffID:       7,
		VIN:           "1HGCM82633A004352",
		Model:         "Honda Accord",
		ClientContact: "+380501112233",
		Auction:       "copart",
		Location:      "Copart: TX - DALLAS",
		Bid:           10000,
		TotalCost:     19742.7,
		Payload:       json.RawMessage(`{"total":19742.7}`),
	}
	require.NoError(t, db.SaveCalculation(calc))
	assert.NotZero(t, calc.ID)
	assert.Len(t, calc.Ref, 36)

	calcs, err := db.GetCalculations(5)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, "+380501112233", calcs[0].ClientContact)
	assert.Equal(t, 19742.7, calcs[0].TotalCost)
	assert.JSONEq(t, `{"total":19742.7}`, string(calcs[0].Payload))
}

func TestSaveCalculation_KeepsCallerTimestamp(t *testing.T) {
	db := openTestDB(t)

	kyiv := time.FixedZone("EET", 2*60*60)
	at := time.Date(2025, time.March, 3, 9, 30, 0, 0, kyiv)
	calc := &Calculation{StaffID: 1, VIN: "VIN", Auction: "copart", Location: "Copart: X", CreatedAt: at}
	require.NoError(t, db.SaveCalculation(calc))
	assert.Equal(t, at, calc.CreatedAt)
	assert.Equal(t, "2025-03-03 09:30:00", calc.CreatedAt.Format("2006-01-02 15:04:05"))

	calcs, err := db.GetCalculations(5)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.True(t, at.Equal(calcs[0].CreatedAt))

	unset := &Calculation{StaffID: 1, VIN: "VIN2", Auction: "copart", Location: "Copart: X"}
	require.NoError(t, db.SaveCalculation(unset))
	assert.False(t, unset.CreatedAt.IsZero())
}

func TestSaveCalculation_Encrypted(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SetEncryptionKey(testKey()))

	calc := &Calculation{StaffID: 1, VIN: "VIN", Model: "M", ClientContact: "secret phone", Auction: "iaai", Location: "IAAI: X"}
	require.NoError(t, db.SaveCalculation(calc))

	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT client_contact FROM calculations WHERE id = ?`, calc.ID).Scan(&raw))
	assert.NotContains(t, string(raw), "secret phone")

	calcs, err := db.GetCalculations(5)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, "secret phone", calcs[0].ClientContact)

	require.NoError(t, db.SetEncryptionKey(nil))
	calcs, err = db.GetCalculations(5)
	require.NoError(t, err)
	assert.Equal(t, "[encrypted]", calcs[0].ClientContact)
}

func TestSetEncryptionKey_InvalidLength(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SetEncryptionKey([]byte("short")))
}

func TestTrackedAds(t *testing.T) {
	db := openTestDB(t)
	expire := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	ad := &TrackedAd{AutoID: 100, VIN: "VIN1", Model: "BMW X5", Link: "https://auto.ria.com/uk/auto_100.html", ManagerID: 55, ExpireAt: expire}
	require.NoError(t, db.UpsertAd(ad))
	require.NoError(t, db.UpsertAd(&TrackedAd{AutoID: 200, ExpireAt: expire.Add(-time.Hour)}))
	require.NoError(t, db.UpsertAd(&TrackedAd{AutoID: 300, ExpireAt: expire, Status: AdArchived}))

	got, err := db.GetAd(100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "BMW X5", got.Model)
	assert.Equal(t, int64(55), got.ManagerID)
	assert.Equal(t, AdActive, got.Status)
	assert.True(t, expire.Equal(got.ExpireAt))

	missing, err := db.GetAd(999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	active, err := db.GetActiveAds()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(200), active[0].AutoID, "ordered by expiry")

	got.NotifyStatus = NotifySent24h
	got.ExpireAt = expire.Add(48 * time.Hour)
	require.NoError(t, db.UpdateAd(got))

	updated, err := db.GetAd(100)
	require.NoError(t, err)
	assert.Equal(t, NotifySent24h, updated.NotifyStatus)
	assert.True(t, expire.Add(48*time.Hour).Equal(updated.ExpireAt))
}

func TestEncryptDecryptSecret(t *testing.T) {
	key := testKey()

	enc, err := EncryptSecret("hello", key)
	require.NoError(t, err)

	again, err := EncryptSecret("hello", key)
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonce is random")

	plain, err := DecryptSecret(enc, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", plain)

	enc[len(enc)-1] ^= 0xff
	_, err = DecryptSecret(enc, key)
	assert.Error(t, err)

	_, err = DecryptSecret([]byte{1, 2}, key)
	assert.Error(t, err)
}

func TestParseEncryptionKey(t *testing.T) {
	key, err := ParseEncryptionKey("")
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = ParseEncryptionKey(base64.StdEncoding.EncodeToString(testKey()))
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)

	_, err = ParseEncryptionKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)

	_, err = ParseEncryptionKey("%%%")
	assert.Error(t, err)
}

func TestDBSessionStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewDBSessionStore(db, []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	rec := httptest.NewRecorder()
	session, err := store.New(req, "carbot")
	require.NoError(t, err)
	assert.True(t, session.IsNew)

	session.Values["staff"] = true
	require.NoError(t, session.Save(req, rec))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/api/calculations", nil)
	next.AddCookie(cookies[0])
	loaded, err := store.New(next, "carbot")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, true, loaded.Values["staff"])

	loaded.Options.MaxAge = -1
	require.NoError(t, store.Save(next, httptest.NewRecorder(), loaded))

	after := httptest.NewRequest(http.MethodGet, "/api/calculations", nil)
	after.AddCookie(cookies[0])
	fresh, err := store.New(after, "carbot")
	require.NoError(t, err)
	assert.True(t, fresh.IsNew)
}

func TestDBSessionStore_TamperedCookie(t *testing.T) {
	db := openTestDB(t)
	store := NewDBSessionStore(db, []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "carbot", Value: "forged"})

	session, err := store.New(req, "carbot")
	require.NoError(t, err)
	assert.True(t, session.IsNew)
	assert.Empty(t, session.Values)
}

func TestCleanupExpiredSessions(t *testing.T) {
	db := openTestDB(t)
	store := NewDBSessionStore(db, []byte("0123456789abcdef0123456789abcdef"))

	require.NoError(t, store.save("old", []byte("{}"), time.Now().UTC().Add(-time.Minute)))
	require.NoError(t, store.save("new", []byte("{}"), time.Now().UTC().Add(time.Hour)))

	n, err := store.CleanupExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
