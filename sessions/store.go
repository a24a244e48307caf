package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/users"
	"github.com/rs/zerolog/log"
)

type subscription struct {
	id uint64
	fn func()
}

// Store is the single source of truth for the persisted auth record. Every
// change is announced to subscribers, which re-read the store instead of
// sharing mutable state.
type Store struct {
	storage Storage
	key     string
	lock    sync.Mutex // serializes read-modify-write on the record

	subsLock sync.RWMutex
	subs     []subscription
	nextID   uint64
}

func NewStore(storage Storage, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{storage: storage, key: key}
}

func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted record, or nil when there is none. A corrupt or
// partial record is purged, reported as absent and announced to subscribers.
func (s *Store) Load(ctx context.Context) (*Record, error) {
	s.lock.Lock()
	rec, purged, err := s.load(ctx)
	s.lock.Unlock()
	if purged {
		s.notify()
	}
	return rec, err
}

// load reports purged when it removed an unreadable record.
func (s *Store) load(ctx context.Context) (rec *Record, purged bool, err error) {
	data, found, err := s.storage.Get(ctx, s.key)
	if apperrors.Is(err, apperrors.ErrCorruptRecord) {
		return nil, s.purge(ctx, err), nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("[Store Load] %w", err)
	}
	if !found {
		return nil, false, nil
	}

	rec = &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, s.purge(ctx, err), nil
	}
	if !rec.complete() {
		return nil, s.purge(ctx, apperrors.ErrIncompleteRecord), nil
	}
	return rec, false, nil
}

func (s *Store) purge(ctx context.Context, cause error) bool {
	log.Warn().Err(cause).Str("key", s.key).Msg("Discarding unreadable auth record")
	if err := s.storage.Delete(ctx, s.key); err != nil {
		log.Err(err).Str("key", s.key).Msg("Failed to purge auth record")
		return false
	}
	return true
}

// Save overwrites the record with user and session and notifies subscribers.
func (s *Store) Save(ctx context.Context, user *users.User, session *Session) error {
	rec := &Record{User: user, Session: session}
	if !rec.complete() {
		return apperrors.ErrIncompleteRecord
	}

	s.lock.Lock()
	err := s.write(ctx, rec)
	s.lock.Unlock()
	if err != nil {
		return err
	}

	s.notify()
	return nil
}

// Clear removes the record and notifies subscribers.
func (s *Store) Clear(ctx context.Context) error {
	s.lock.Lock()
	err := s.storage.Delete(ctx, s.key)
	s.lock.Unlock()
	if err != nil {
		return fmt.Errorf("[Store Clear] %w", err)
	}

	s.notify()
	return nil
}

// ReplaceSession swaps in a refreshed session, keeping the stored user, but
// only while the stored record still carries refreshToken. It returns false
// without writing when the record was cleared or replaced by another login in
// the meantime.
func (s *Store) ReplaceSession(ctx context.Context, refreshToken string, session *Session) (bool, error) {
	ok, err := s.SwapSession(ctx, refreshToken, session)
	if ok {
		s.notify()
	}
	return ok, err
}

// SwapSession is ReplaceSession without the announcement. Callers that must
// not run subscriber code at the point of the write call Notify afterwards.
func (s *Store) SwapSession(ctx context.Context, refreshToken string, session *Session) (bool, error) {
	if session == nil || session.AccessToken == "" {
		return false, apperrors.ErrIncompleteRecord
	}

	s.lock.Lock()
	rec, purged, err := s.load(ctx)
	if err != nil || rec == nil || rec.Session.RefreshToken != refreshToken {
		s.lock.Unlock()
		if purged {
			s.notify()
		}
		return false, err
	}
	err = s.write(ctx, &Record{User: rec.User, Session: session})
	s.lock.Unlock()
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[Store write] marshal: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("[Store write] %w", err)
	}
	return nil
}

// Subscribe registers fn to run after every change to the record. The
// returned function removes the subscription and is safe to call twice.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subsLock.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subsLock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsLock.Lock()
			defer s.subsLock.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify runs every subscriber. Store methods that change the record call it
// themselves; SwapSession leaves it to the caller.
func (s *Store) Notify() {
	s.notify()
}

func (s *Store) notify() {
	s.subsLock.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsLock.RUnlock()

	for _, sub := range subs {
		sub.fn()
	}
}

// Watch relays changes made by other processes to subscribers until ctx ends.
// It requires a storage that implements Watcher.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.storage.(Watcher)
	if !ok {
		return apperrors.ErrWatchUnsupported
	}
	return w.Watch(ctx, s.key, s.notify)
}
