package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/medicine"
)

func setupTestStore(t *testing.T) *Store {
	cfg := &config.Config{Storage: config.StorageConfig{InMemory: true}}
	st, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_LoadMedicinesEmpty(t *testing.T) {
	st := setupTestStore(t)

	meds, err := st.LoadMedicines()
	require.NoError(t, err)
	assert.NotNil(t, meds)
	assert.Empty(t, meds)
}

func TestStore_MedicineRoundTrip(t *testing.T) {
	st := setupTestStore(t)

	med := medicine.Medicine{
		ID:     "1700000000000",
		Name:   "Zoretanin",
		Dosage: "20mg",
		Schedule: medicine.Schedule{
			Days:  []string{medicine.EveryDay},
			Times: []string{"08:00", "20:00"},
		},
	}

	require.NoError(t, st.SaveMedicine(med))

	meds, err := st.LoadMedicines()
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.True(t, med.Equal(meds[0]), "expected %+v, got %+v", med, meds[0])
}

func TestStore_SaveMedicineReplacesByID(t *testing.T) {
	st := setupTestStore(t)

	first := medicine.Medicine{ID: "a", Name: "First", Schedule: medicine.Schedule{Days: []string{medicine.Monday}, Times: []string{"08:00"}}}
	second := medicine.Medicine{ID: "b", Name: "Second", Schedule: medicine.Schedule{Days: []string{medicine.Friday}, Times: []string{"09:00"}}}
	require.NoError(t, st.SaveMedicine(first))
	require.NoError(t, st.SaveMedicine(second))

	edited := first
	edited.Name = "First (edited)"
	edited.Schedule = medicine.Schedule{Days: []string{medicine.EveryDay}, Times: []string{"07:30"}}
	require.NoError(t, st.SaveMedicine(edited))

	meds, err := st.LoadMedicines()
	require.NoError(t, err)
	require.Len(t, meds, 2)
	assert.True(t, edited.Equal(meds[0]))
	assert.True(t, second.Equal(meds[1]))
}

func TestStore_GetAndDeleteMedicine(t *testing.T) {
	st := setupTestStore(t)

	med := medicine.Medicine{ID: "x", Name: "X", Schedule: medicine.Schedule{Days: []string{medicine.Monday}, Times: []string{"08:00"}}}
	require.NoError(t, st.SaveMedicine(med))

	got, err := st.GetMedicine("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "X", got.Name)

	missing, err := st.GetMedicine("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.DeleteMedicine("x"))
	require.NoError(t, st.DeleteMedicine("x"))

	meds, err := st.LoadMedicines()
	require.NoError(t, err)
	assert.Empty(t, meds)
}

func TestStore_MedicinesStoredUnderSingleKey(t *testing.T) {
	st := setupTestStore(t)

	require.NoError(t, st.SaveMedicine(medicine.Medicine{ID: "1", Name: "A"}))
	require.NoError(t, st.SaveMedicine(medicine.Medicine{ID: "2", Name: "B"}))

	raw, err := st.GetKV(MedicinesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"1","name":"A","dosage":"","schedule":{"days":null,"times":null}},
		{"id":"2","name":"B","dosage":"","schedule":{"days":null,"times":null}}
	]`, string(raw))
}

func TestStore_Profile(t *testing.T) {
	st := setupTestStore(t)

	none, err := st.LoadProfile()
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, st.SaveProfile(&ProfileRecord{Age: 30, Height: 180, Weight: 75, LastUpdated: "2026-01-01T00:00:00Z"}))
	require.NoError(t, st.SaveProfile(&ProfileRecord{Age: 31, Height: 180, Weight: 74, LastUpdated: "2026-02-01T00:00:00Z"}))

	rec, err := st.LoadProfile()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 31.0, rec.Age)
	assert.Equal(t, 74.0, rec.Weight)

	require.NoError(t, st.DeleteProfile())
	rec, err = st.LoadProfile()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_Notifications(t *testing.T) {
	st := setupTestStore(t)

	rec := &NotificationRecord{MedicineID: "m1", Title: "t", Kind: "daily", Hour: 8}
	require.NoError(t, st.SaveNotification(rec))
	assert.NotEmpty(t, rec.ID)

	require.NoError(t, st.SaveNotification(&NotificationRecord{ID: "fixed", MedicineID: "m2", Kind: "weekly", Weekday: 2, Hour: 9}))

	recs, err := st.ListNotifications()
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	require.NoError(t, st.DeleteNotification("fixed"))
	recs, err = st.ListNotifications()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "m1", recs[0].MedicineID)
}

func TestStore_KV(t *testing.T) {
	st := setupTestStore(t)

	val, err := st.GetKV("language")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, st.SetKV("language", []byte("tr")))
	val, err = st.GetKV("language")
	require.NoError(t, err)
	assert.Equal(t, "tr", string(val))
}
