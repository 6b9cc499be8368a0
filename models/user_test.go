package models_test

import (
	"encoding/json"
	"reflect"
	"strconv"
	"testing"

	"aniview/models"
)

func TestPreferencesRepairOnDecode(t *testing.T) {
	var prefs models.Preferences
	if err := json.Unmarshal([]byte(`{"theme":"light"}`), &prefs); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	if prefs.Theme != models.ThemeLight {
		t.Fatalf("expected light theme, got %q", prefs.Theme)
	}
	if prefs.Language != models.DefaultLanguage {
		t.Fatalf("expected default language, got %q", prefs.Language)
	}
	if !prefs.Notifications {
		t.Fatalf("expected missing notifications repaired to true")
	}
}

func TestPreferencesExplicitFalseSurvivesDecode(t *testing.T) {
	var prefs models.Preferences
	if err := json.Unmarshal([]byte(`{"theme":"dark","language":"ja","notifications":false}`), &prefs); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	if prefs.Notifications {
		t.Fatalf("expected explicit false to be kept")
	}
	if prefs.Language != "ja" {
		t.Fatalf("expected language ja, got %q", prefs.Language)
	}
}

func TestPreferencesUnknownThemeFallsBackToDark(t *testing.T) {
	var prefs models.Preferences
	if err := json.Unmarshal([]byte(`{"theme":"sepia"}`), &prefs); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if prefs.Theme != models.ThemeDark {
		t.Fatalf("expected fallback to dark, got %q", prefs.Theme)
	}
}

func TestSnapshotWithoutPreferencesDecodesToDefaults(t *testing.T) {
	var snap models.UserSnapshot
	raw := `{"id":"u1","username":"shiro","email":"shiro@example.com","favorites":["1"],"watchlist":[]}`
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}

	if snap.Preferences != models.DefaultPreferences() {
		t.Fatalf("expected default preferences, got %+v", snap.Preferences)
	}
	if norm := snap.Normalized(); !norm.Preferences.Notifications {
		t.Fatalf("expected notifications default true to survive normalization")
	}
	if snap.Username != "shiro" || !reflect.DeepEqual(snap.Favorites, []string{"1"}) {
		t.Fatalf("expected remaining fields decoded, got %+v", snap)
	}
}

func TestNormalizedDeduplicatesLists(t *testing.T) {
	snap := models.UserSnapshot{
		Favorites: []string{"1", "2", "1", "3", "2"},
		Watchlist: nil,
	}

	norm := snap.Normalized()

	if !reflect.DeepEqual(norm.Favorites, []string{"1", "2", "3"}) {
		t.Fatalf("expected deduplicated favorites, got %v", norm.Favorites)
	}
	if norm.Watchlist == nil {
		t.Fatalf("expected nil watchlist replaced with empty list")
	}
	if norm.Preferences.Theme != models.ThemeDark || norm.Preferences.Language != models.DefaultLanguage {
		t.Fatalf("expected preferences repaired, got %+v", norm.Preferences)
	}
}

func TestNormalizedCapsHistory(t *testing.T) {
	history := make([]string, 0, models.HistoryLimit+20)
	for i := 0; i < models.HistoryLimit+20; i++ {
		history = append(history, strconv.Itoa(i))
	}
	snap := models.UserSnapshot{History: history}

	norm := snap.Normalized()
	if len(norm.History) != models.HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", models.HistoryLimit, len(norm.History))
	}
}

func TestCloneIsDeep(t *testing.T) {
	snap := models.UserSnapshot{Favorites: []string{"1"}}
	clone := snap.Clone()
	clone.Favorites[0] = "9"

	if snap.Favorites[0] != "1" {
		t.Fatalf("expected clone to own its backing array")
	}
}

func TestMembershipHelpers(t *testing.T) {
	snap := models.UserSnapshot{Favorites: []string{"1"}, Watchlist: []string{"2"}}

	if !snap.HasFavorite("1") || snap.HasFavorite("2") {
		t.Fatalf("favorites membership incorrect")
	}
	if !snap.OnWatchlist("2") || snap.OnWatchlist("1") {
		t.Fatalf("watchlist membership incorrect")
	}
}
