package models

import "encoding/json"

const (
	// ThemeLight and ThemeDark are the only accepted theme values.
	ThemeLight = "light"
	ThemeDark  = "dark"
	// DefaultLanguage is used when a snapshot carries no language.
	DefaultLanguage = "en"
	// HistoryLimit caps the watch history at its most recent entries.
	HistoryLimit = 100
)

// Preferences is the closed per-user settings record. A decoded Preferences
// is always complete: missing fields are repaired to defaults during
// unmarshalling so callers never see a partially filled record.
type Preferences struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

// DefaultPreferences returns the settings applied to brand-new or repaired
// snapshots.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         ThemeDark,
		Language:      DefaultLanguage,
		Notifications: true,
	}
}

// UnmarshalJSON decodes preferences while repairing absent fields to their
// defaults. A plain decode could not tell a stored "notifications": false
// from a missing field, so pointers are used as the wire shape.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw struct {
		Theme         *string `json:"theme"`
		Language      *string `json:"language"`
		Notifications *bool   `json:"notifications"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = DefaultPreferences()
	if raw.Theme != nil {
		p.Theme = *raw.Theme
	}
	if raw.Language != nil && *raw.Language != "" {
		p.Language = *raw.Language
	}
	if raw.Notifications != nil {
		p.Notifications = *raw.Notifications
	}
	p.repair()
	return nil
}

func (p *Preferences) repair() {
	if p.Theme != ThemeLight && p.Theme != ThemeDark {
		p.Theme = ThemeDark
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
}

// UserSnapshot is the full in-memory representation of the logged-in user.
// Favorites and Watchlist are sets kept in insertion order; History is a
// local-only most-recently-used list that never rides a remote push.
type UserSnapshot struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Avatar      string      `json:"avatar,omitempty"`
	Role        string      `json:"role,omitempty"`
	Preferences Preferences `json:"preferences"`
	Favorites   []string    `json:"favorites"`
	Watchlist   []string    `json:"watchlist"`
	History     []string    `json:"history,omitempty"`
}

// UnmarshalJSON decodes a snapshot while repairing an absent preferences
// object to the defaults. Preferences.UnmarshalJSON only runs when the key
// is present, so the missing-object case is handled here.
func (s *UserSnapshot) UnmarshalJSON(data []byte) error {
	type snapshot UserSnapshot
	raw := struct {
		*snapshot
		Preferences *Preferences `json:"preferences"`
	}{snapshot: (*snapshot)(s)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Preferences != nil {
		s.Preferences = *raw.Preferences
	} else {
		s.Preferences = DefaultPreferences()
	}
	return nil
}

// Normalized returns a copy with preferences repaired, list fields
// deduplicated in first-seen order, and nil lists replaced with empty ones.
func (s UserSnapshot) Normalized() UserSnapshot {
	out := s
	out.Preferences.repair()
	out.Favorites = dedupe(s.Favorites)
	out.Watchlist = dedupe(s.Watchlist)
	out.History = dedupe(s.History)
	if len(out.History) > HistoryLimit {
		out.History = out.History[:HistoryLimit]
	}
	return out
}

// Clone returns a deep copy so callers can hand snapshots across goroutines
// without sharing backing arrays.
func (s UserSnapshot) Clone() UserSnapshot {
	out := s
	out.Favorites = append([]string(nil), s.Favorites...)
	out.Watchlist = append([]string(nil), s.Watchlist...)
	out.History = append([]string(nil), s.History...)
	return out
}

// HasFavorite reports set membership on the favorites list.
func (s UserSnapshot) HasFavorite(id string) bool {
	return contains(s.Favorites, id)
}

// OnWatchlist reports set membership on the watchlist.
func (s UserSnapshot) OnWatchlist(id string) bool {
	return contains(s.Watchlist, id)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
