// Package theme keeps the light/dark preference of the client and tells
// interested parties when the effective appearance changes.
package theme

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// StorageKey is the fixed name the preference is saved under.
const StorageKey = "theme"

type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

var ErrInvalidPreference = errors.New("theme must be light, dark or system")

func ParsePreference(s string) (Preference, error) {
	switch p := Preference(s); p {
	case Light, Dark, System:
		return p, nil
	}
	return "", ErrInvalidPreference
}

// Storage is a small key/value space that survives restarts.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Appearance reports the operating system's color scheme and its changes.
type Appearance interface {
	Dark() bool
	Subscribe(fn func(dark bool)) (cancel func())
}

type Snapshot struct {
	Preference Preference `json:"theme"`
	Effective  Preference `json:"effective"`
}

// Store owns the current preference. Every change is written to storage
// and pushed to subscribers.
type Store struct {
	mu          sync.Mutex
	storage     Storage
	appearance  Appearance
	pref        Preference
	nextID      int
	subscribers map[int]func(Snapshot)
	cancel      func()
}

// NewStore loads the saved preference, falling back to System when none is
// saved or the saved value is unknown.
func NewStore(storage Storage, appearance Appearance) *Store {
	s := &Store{
		storage:     storage,
		appearance:  appearance,
		pref:        System,
		subscribers: make(map[int]func(Snapshot)),
	}
	if v, ok, err := storage.Get(StorageKey); err != nil {
		log.WithError(err).Warn("could not read saved theme, using system")
	} else if ok {
		if p, err := ParsePreference(v); err == nil {
			s.pref = p
		} else {
			log.WithField("theme", v).Warn("ignoring unknown saved theme")
		}
	}
	s.cancel = appearance.Subscribe(s.appearanceChanged)
	return s
}

func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Set changes the preference, persists it and notifies subscribers.
func (s *Store) Set(p Preference) (Snapshot, error) {
	if _, err := ParsePreference(string(p)); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	if err := s.storage.Set(StorageKey, string(p)); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.pref = p
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return snap, nil
}

// Subscribe registers fn for future changes. The returned function removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close detaches the store from the appearance source.
func (s *Store) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Store) appearanceChanged(bool) {
	s.mu.Lock()
	if s.pref != System {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	eff := s.pref
	if eff == System {
		eff = Light
		if s.appearance.Dark() {
			eff = Dark
		}
	}
	return Snapshot{Preference: s.pref, Effective: eff}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
