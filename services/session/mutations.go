package session

import (
	"context"

	"aniview/models"
	"aniview/services/account"
)

// pushFunc sends one changed field to the account service. The snapshot is
// the value captured at dispatch time, so a later mutation cannot be
// clobbered by an earlier in-flight push.
type pushFunc func(ctx context.Context, token string, snap models.UserSnapshot) error

// apply runs the shared optimistic-write-through algorithm: mutate a copy,
// persist it, expose it, then push asynchronously. A nil mutation result
// (mutate returns false) means the operation was an idempotent no-op and no
// remote call is issued. Without a current snapshot the call is silently
// ignored. Push failures are logged and never rolled back; local and remote
// state may diverge until the next full resync.
func (s *Service) apply(op string, mutate func(*models.UserSnapshot) bool, push pushFunc) {
	s.mu.Lock()
	if s.snap == nil {
		s.mu.Unlock()
		return
	}

	next := s.snap.Clone()
	if !mutate(&next) {
		s.mu.Unlock()
		return
	}

	if err := s.store.SaveSnapshot(&next); err != nil {
		s.log.Warn("persist snapshot", "op", op, "err", err)
	}
	s.snap = &next
	token := s.token
	payload := next.Clone()
	s.mu.Unlock()

	if push == nil {
		return
	}
	s.inflight.Go(func() {
		if err := push(context.Background(), token, payload); err != nil {
			s.log.Warn("remote push failed", "op", op, "err", err)
		}
	})
}

// SetAvatar replaces the avatar reference. An empty string clears it.
func (s *Service) SetAvatar(avatar string) {
	s.apply("update avatar",
		func(snap *models.UserSnapshot) bool {
			if snap.Avatar == avatar {
				return false
			}
			snap.Avatar = avatar
			return true
		},
		func(ctx context.Context, token string, snap models.UserSnapshot) error {
			return s.api.UpdateAvatar(ctx, token, snap.Avatar)
		})
}

// SetPreferences replaces the whole preferences record.
func (s *Service) SetPreferences(prefs models.Preferences) {
	s.apply("update preferences",
		func(snap *models.UserSnapshot) bool {
			if snap.Preferences == prefs {
				return false
			}
			snap.Preferences = prefs
			return true
		},
		func(ctx context.Context, token string, snap models.UserSnapshot) error {
			p := snap.Preferences
			return s.api.UpdatePreferences(ctx, token, account.PreferencesPayload{
				Theme:         &p.Theme,
				Language:      &p.Language,
				Notifications: &p.Notifications,
			})
		})
}

// AddFavorite inserts id into the favorites set. Adding an existing member
// changes nothing and issues no remote call.
func (s *Service) AddFavorite(id string) {
	s.apply("add favorite", addToSet(id, favorites), s.pushFavorites)
}

// RemoveFavorite removes id from the favorites set; removing an absent
// member is a no-op.
func (s *Service) RemoveFavorite(id string) {
	s.apply("remove favorite", removeFromSet(id, favorites), s.pushFavorites)
}

// AddToWatchlist inserts id into the watchlist set.
func (s *Service) AddToWatchlist(id string) {
	s.apply("add to watchlist", addToSet(id, watchlist), s.pushWatchlist)
}

// RemoveFromWatchlist removes id from the watchlist set.
func (s *Service) RemoveFromWatchlist(id string) {
	s.apply("remove from watchlist", removeFromSet(id, watchlist), s.pushWatchlist)
}

// AddToHistory moves id to the front of the watch history, keeping the list
// deduplicated and capped. History is local-only, so nothing is pushed.
func (s *Service) AddToHistory(id string) {
	s.apply("add to history",
		func(snap *models.UserSnapshot) bool {
			history := make([]string, 0, len(snap.History)+1)
			history = append(history, id)
			for _, v := range snap.History {
				if v != id {
					history = append(history, v)
				}
			}
			if len(history) > models.HistoryLimit {
				history = history[:models.HistoryLimit]
			}
			snap.History = history
			return true
		},
		nil)
}

type listField int

const (
	favorites listField = iota
	watchlist
)

func (f listField) get(snap *models.UserSnapshot) []string {
	if f == favorites {
		return snap.Favorites
	}
	return snap.Watchlist
}

func (f listField) set(snap *models.UserSnapshot, ids []string) {
	if f == favorites {
		snap.Favorites = ids
	} else {
		snap.Watchlist = ids
	}
}

func addToSet(id string, field listField) func(*models.UserSnapshot) bool {
	return func(snap *models.UserSnapshot) bool {
		current := field.get(snap)
		for _, v := range current {
			if v == id {
				return false
			}
		}
		field.set(snap, append(current, id))
		return true
	}
}

func removeFromSet(id string, field listField) func(*models.UserSnapshot) bool {
	return func(snap *models.UserSnapshot) bool {
		current := field.get(snap)
		out := current[:0:0]
		found := false
		for _, v := range current {
			if v == id {
				found = true
				continue
			}
			out = append(out, v)
		}
		if !found {
			return false
		}
		field.set(snap, out)
		return true
	}
}

// Pushes post the full list captured at dispatch time. If two list pushes
// race on the wire, the last-arriving response determines server state; the
// next full resync reconciles.

func (s *Service) pushFavorites(ctx context.Context, token string, snap models.UserSnapshot) error {
	favs := snap.Favorites
	return s.api.UpdateLists(ctx, token, account.ListsPatch{Favorites: &favs})
}

func (s *Service) pushWatchlist(ctx context.Context, token string, snap models.UserSnapshot) error {
	wl := snap.Watchlist
	return s.api.UpdateLists(ctx, token, account.ListsPatch{Watchlist: &wl})
}
