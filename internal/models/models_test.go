package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-03-09"}`), &payload))
	assert.Equal(t, "2024-03-09", payload.Date.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-09"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"09/03/2024"}`), &payload))

	out, err = json.Marshal(struct {
		Date Date `json:"date"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":null}`, string(out))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-02T00:00:00Z")))
	assert.Equal(t, "2024-05-02", d.String())

	require.NoError(t, d.Scan("2024-05-03"))
	assert.Equal(t, "2024-05-03", d.String())

	assert.Error(t, d.Scan(42))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", v)
}

func TestToggleStatus(t *testing.T) {
	assert.Equal(t, StatusFailed, ToggleStatus(StatusSuccess))
	assert.Equal(t, StatusSuccess, ToggleStatus(StatusFailed))
	assert.Equal(t, StatusSuccess, ToggleStatus(ToggleStatus(StatusSuccess)))
}

func TestCalendarEntries_Merge(t *testing.T) {
	day1, _ := ParseDate("2024-01-01")
	day2, _ := ParseDate("2024-01-02")

	orig := CalendarEntries{
		"2024-01-01": {Status: StatusSuccess, Image: "a.png"},
	}
	merged := orig.Merge(day2, CalendarEntry{Status: StatusFailed})
	assert.Len(t, merged, 2)
	assert.Len(t, orig, 1, "merge must not mutate the receiver")

	merged = merged.Merge(day1, CalendarEntry{Status: StatusFailed})
	assert.Equal(t, CalendarEntry{Status: StatusFailed, Image: "a.png"}, merged["2024-01-01"])

	var nilEntries CalendarEntries
	merged = nilEntries.Merge(day1, CalendarEntry{Status: StatusSuccess})
	assert.Len(t, merged, 1)
}

func TestCalendarEntries_ValueScan(t *testing.T) {
	entries := CalendarEntries{"2024-01-01": {Status: StatusSuccess}}
	v, err := entries.Value()
	require.NoError(t, err)

	var scanned CalendarEntries
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, entries, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan([]byte("not json")))

	var empty CalendarEntries
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestInventory(t *testing.T) {
	inv := Inventory{
		{Catalog: CatalogItems, ItemID: 1, Name: "Potion", Price: 30},
		{Catalog: CatalogHotels, ItemID: 2, Name: "Inn", Price: 45},
	}
	assert.Equal(t, 75, inv.TotalSpent())
	assert.Equal(t, 0, Inventory(nil).TotalSpent())

	v, err := inv.Value()
	require.NoError(t, err)
	var scanned Inventory
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, 75, scanned.TotalSpent())

	v, err = Inventory(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestCatalogs(t *testing.T) {
	table, ok := CatalogTable(CatalogBlackMarket)
	assert.True(t, ok)
	assert.Equal(t, "blackmarket_items", table)
	assert.True(t, IsValidCatalog(CatalogHotels))
	assert.False(t, IsValidCatalog("armory"))
}

func TestLevelForExp(t *testing.T) {
	assert.Equal(t, 1, LevelForExp(0))
	assert.Equal(t, 1, LevelForExp(99))
	assert.Equal(t, 2, LevelForExp(100))
	assert.Equal(t, 6, LevelForExp(550))
	assert.Equal(t, 1, LevelForExp(-5))
}

func TestJournalEntry_IsEmpty(t *testing.T) {
	assert.True(t, (&JournalEntry{}).IsEmpty())
	assert.False(t, (&JournalEntry{Vent: "ugh"}).IsEmpty())
}
