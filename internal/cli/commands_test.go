package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/medreminder/internal/leaflet"
	"github.com/gmsas95/medreminder/internal/medicine"
	"github.com/gmsas95/medreminder/internal/prefs"
	"github.com/gmsas95/medreminder/internal/reminder"
)

func TestChannelStatus(t *testing.T) {
	assert.Equal(t, "✅ enabled", channelStatus(true))
	assert.Equal(t, "❌ disabled", channelStatus(false))
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"1234567890", "1234...7890"},
		{"1234567890abcdef", "1234...cdef"},
		{"short", "***"},
		{"", "***"},
		{"1234567", "***"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, maskToken(tt.token), tt.token)
	}
}

func sampleData() ([]medicine.Medicine, []reminder.Scheduled) {
	meds := []medicine.Medicine{{
		ID:     "med_1",
		Name:   "Aspirin",
		Dosage: "100mg",
		Schedule: medicine.Schedule{
			Days:  []string{medicine.Monday},
			Times: []string{"20:00", "08:00"},
		},
	}}
	entries := []reminder.Scheduled{
		{
			ID:      "n1",
			Content: reminder.Content{Title: "Medicine Reminder: Aspirin", Data: reminder.Data{MedicineID: "med_1"}},
			Trigger: reminder.Trigger{Kind: reminder.Weekly, Weekday: 2, Hour: 8, Minute: 0},
		},
		{
			ID:      "n2",
			Content: reminder.Content{Title: "Upcoming Medicine: Aspirin", Data: reminder.Data{MedicineID: "med_1", OffsetMinutes: 10}},
			Trigger: reminder.Trigger{Kind: reminder.Weekly, Weekday: 2, Hour: 7, Minute: 50},
		},
	}
	return meds, entries
}

func TestMedicineTable(t *testing.T) {
	meds, entries := sampleData()

	out := medicineTable(meds, entries, false)
	assert.Contains(t, out, "Aspirin")
	assert.Contains(t, out, "08:00, 20:00")
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "REMINDERS")
	assert.NotContains(t, out, "custom time")

	assert.Contains(t, medicineTable(nil, nil, false), "No medicines yet")
}

func TestMedicineTable_CustomTimesAndTurkishDays(t *testing.T) {
	meds := []medicine.Medicine{{
		ID:     "med_2",
		Name:   "Zoretanin",
		Dosage: "20mg",
		Schedule: medicine.Schedule{
			Days:  []string{medicine.EveryDay},
			Times: []string{"07:45", "20:00"},
		},
	}}

	out := medicineTable(meds, nil, true)
	assert.Contains(t, out, "Her Gün")
	assert.Contains(t, out, "07:45*, 20:00")
	assert.Contains(t, out, "14")
	assert.Contains(t, out, "custom time")
}

func TestLeafletMarkdown(t *testing.T) {
	md := leafletMarkdown(leaflet.LeafletData{
		Name:              "Aspirin",
		Dosage:            "100mg",
		IntendedUse:       "Pain relief",
		HowToUse:          []string{"Initial dose: 1 tablet", "Administration: with water"},
		NotRecommendedFor: "Children under 16",
	})

	assert.True(t, strings.HasPrefix(md, "# Aspirin 100mg\n"))
	assert.Contains(t, md, "## Intended use\n\nPain relief")
	assert.Contains(t, md, "- Initial dose: 1 tablet\n- Administration: with water\n")
	assert.Contains(t, md, "## Not recommended for\n\nChildren under 16")
}

func TestRenderLeaflet(t *testing.T) {
	out, err := renderLeaflet(leaflet.Fallback("Aspirin", "100mg"), 0)
	require.NoError(t, err)
	assert.Contains(t, out, "Aspirin")
}

func TestWriteExport(t *testing.T) {
	meds, entries := sampleData()
	profile := &prefs.Profile{Age: 34, Height: 172, Weight: 70, LastUpdated: "2024-01-01T00:00:00Z"}
	snapshot := newExport(meds, entries, profile, prefs.Turkish, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	require.Len(t, snapshot.Notifications, 2)
	assert.Equal(t, "WEEKLY(2) 07:50", snapshot.Notifications[1].Trigger)
	assert.Equal(t, 10, snapshot.Notifications[1].OffsetMinutes)

	var buf bytes.Buffer
	require.NoError(t, writeExport(&buf, snapshot, "json"))
	var decoded Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2024-05-01T09:00:00Z", decoded.ExportedAt)
	assert.Equal(t, prefs.Turkish, decoded.Language)
	assert.Equal(t, "Aspirin", decoded.Medicines[0].Name)

	buf.Reset()
	require.NoError(t, writeExport(&buf, snapshot, "yaml"))
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "tr", doc["language"])
	assert.Contains(t, buf.String(), "medicine_id: med_1")

	assert.Error(t, writeExport(&buf, snapshot, "xml"))
}

func TestNewExport_Empty(t *testing.T) {
	snapshot := newExport(nil, nil, nil, prefs.English, time.Now())
	assert.NotNil(t, snapshot.Medicines)
	assert.Empty(t, snapshot.Notifications)
	assert.Nil(t, snapshot.Profile)
}

func TestPrintExtendedHelp(t *testing.T) {
	PrintExtendedHelp()
}
