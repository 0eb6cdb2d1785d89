package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inkpress/storefront/internal/editor"
	"github.com/inkpress/storefront/internal/export"
	"github.com/inkpress/storefront/internal/models"
	"github.com/inkpress/storefront/internal/printarea"
)

// ErrExportPending is returned when a session already has an export
// running.
var ErrExportPending = errors.New("export already in progress")

// EditorFactory builds the editor for one print area of a session.
type EditorFactory func(area printarea.PrintArea) (*editor.Editor, error)

// Session is one customer customizing one product. Each print area gets
// its own editor, created the first time the area is opened.
type Session struct {
	ID        string         `json:"id"`
	Product   models.Product `json:"product"`
	CreatedAt time.Time      `json:"created_at"`

	mu       sync.Mutex
	areas    []printarea.PrintArea
	editors  map[string]*editor.Editor
	active   string
	factory  EditorFactory
	job      *export.Job
	lastSeen time.Time
}

// NewSession opens a session on areaID, or on the product's first area
// when areaID is empty.
func NewSession(id string, product models.Product, areas []printarea.PrintArea, areaID string, factory EditorFactory) (*Session, error) {
	if len(areas) == 0 {
		return nil, fmt.Errorf("product %s has no print areas", product.ID)
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		Product:   product,
		CreatedAt: now,
		areas:     areas,
		editors:   make(map[string]*editor.Editor),
		factory:   factory,
		lastSeen:  now,
	}
	if areaID == "" {
		areaID = areas[0].ID
	}
	if _, err := s.SwitchArea(areaID); err != nil {
		return nil, err
	}
	return s, nil
}

// Areas returns the product's print areas.
func (s *Session) Areas() []printarea.PrintArea {
	out := make([]printarea.PrintArea, len(s.areas))
	copy(out, s.areas)
	return out
}

// Area returns the print area being edited.
func (s *Session) Area() printarea.PrintArea {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, _ := s.lookup(s.active)
	return a
}

// Editor returns the editor of the active area.
func (s *Session) Editor() *editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editors[s.active]
}

// SwitchArea makes areaID the active area. Switching flushes pending
// edits of the area being left.
func (s *Session) SwitchArea(areaID string) (*editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.lookup(areaID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", printarea.ErrUnknownPrintArea, s.Product.ID, areaID)
	}
	if prev, ok := s.editors[s.active]; ok && s.active != areaID {
		prev.Flush()
	}
	ed, ok := s.editors[areaID]
	if !ok {
		var err error
		ed, err = s.factory(area)
		if err != nil {
			return nil, fmt.Errorf("failed to open editor for %s: %w", areaID, err)
		}
		s.editors[areaID] = ed
	}
	s.active = areaID
	return ed, nil
}

// Designed lists the ids of areas whose editor holds at least one element.
func (s *Session) Designed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, ed := range s.editors {
		if ed.Scene().Len() > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// BeginExport records job as the session's export. It fails while an
// earlier export is still running.
func (s *Session) BeginExport(start func() *export.Job) (*export.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil {
		select {
		case <-s.job.Done():
		default:
			return nil, ErrExportPending
		}
	}
	s.job = start()
	return s.job, nil
}

// ExportPending reports whether an export is running.
func (s *Session) ExportPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return false
	}
	select {
	case <-s.job.Done():
		return false
	default:
		return true
	}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close flushes and stops every editor.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ed := range s.editors {
		ed.Close()
	}
}

func (s *Session) lookup(areaID string) (printarea.PrintArea, bool) {
	for _, a := range s.areas {
		if a.ID == areaID {
			return a, true
		}
	}
	return printarea.PrintArea{}, false
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
}

// New creates a store whose sessions expire after ttl without use. A zero
// ttl keeps sessions until they are deleted.
func New(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[sessionID]; ok && old != session {
		old.Close()
	}
	s.sessions[sessionID] = session
}

func (s *SessionStore) GetAll() map[string]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		session.Close()
	}
}

// Sweep removes sessions idle since before now-ttl and returns their ids.
// Sessions with a running export are kept.
func (s *SessionStore) Sweep(now time.Time) []string {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if session.LastSeen().Before(cutoff) && !session.ExportPending() {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, session := range expired {
		session.Close()
		ids = append(ids, session.ID)
	}
	sort.Strings(ids)
	return ids
}
