// Package admin is the knowledge-base maintenance screen: a local, re-fetchable
// copy of the remote entries plus the create/edit/delete flows around it.
package admin

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"techsupport-web/internal/backend"
	"techsupport-web/internal/i18n"
	"techsupport-web/internal/types"
)

const DefaultCategory = "general"

var (
	ErrNotLoaded    = errors.New("knowledge base not loaded yet")
	ErrUnknownEntry = errors.New("entry is not in the loaded list")
	ErrNotConfirmed = errors.New("deletion was not confirmed")
)

// Form mirrors the admin form: keywords are typed as comma separated text.
type Form struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Keywords string `json:"keywords"`
	Category string `json:"category"`
}

// Alert is a failure meant to be shown to the operator verbatim.
type Alert struct {
	Message string
	Err     error
}

func (a *Alert) Error() string { return a.Message }

func (a *Alert) Unwrap() error { return a.Err }

type Screen struct {
	mu         sync.Mutex
	kb         backend.KnowledgeBase
	catalog    *i18n.Catalog
	items      []types.KnowledgeBaseEntry
	categories []string
	loaded     bool
	editingID  int
	edit       Form
}

func NewScreen(kb backend.KnowledgeBase, catalog *i18n.Catalog) *Screen {
	if catalog == nil {
		catalog = i18n.Default()
	}
	return &Screen{kb: kb, catalog: catalog}
}

// Load refreshes entries and categories. A category failure is only logged.
func (s *Screen) Load(ctx context.Context) error {
	if err := s.loadItems(ctx); err != nil {
		return err
	}
	s.loadCategories(ctx)
	return nil
}

func (s *Screen) loadItems(ctx context.Context) error {
	items, err := s.kb.ListEntries(ctx, "")
	if err != nil {
		return &Alert{Message: s.catalog.Admin.LoadFailed, Err: err}
	}
	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Screen) loadCategories(ctx context.Context) {
	cats, err := s.kb.ListCategories(ctx)
	if err != nil {
		log.WithError(err).Warn("could not load knowledge-base categories")
		return
	}
	s.mu.Lock()
	s.categories = cats
	s.mu.Unlock()
}

func (s *Screen) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Screen) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories...)
}

// Filter returns the loaded entries whose question or answer contains search
// (ignoring case) and, when category is set, that belong to it.
func (s *Screen) Filter(search, category string) []types.KnowledgeBaseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	term := strings.ToLower(search)
	out := make([]types.KnowledgeBaseEntry, 0, len(s.items))
	for _, it := range s.items {
		matches := strings.Contains(strings.ToLower(it.Question), term) ||
			strings.Contains(strings.ToLower(it.Answer), term)
		if matches && (category == "" || it.Category == category) {
			out = append(out, it)
		}
	}
	return out
}

// Get fetches one entry straight from the backend.
func (s *Screen) Get(ctx context.Context, id int) (*types.KnowledgeBaseEntry, error) {
	e, err := s.kb.GetEntry(ctx, id)
	if err != nil {
		return nil, s.alert(err, s.catalog.Failures.Get)
	}
	return e, nil
}

// Create adds an entry and reloads the list. It returns the success notice.
func (s *Screen) Create(ctx context.Context, f Form) (string, error) {
	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = DefaultCategory
	}
	_, err := s.kb.CreateEntry(ctx, types.KnowledgeBaseCreate{
		Question: f.Question,
		Answer:   f.Answer,
		Keywords: SplitKeywords(f.Keywords),
		Category: category,
	})
	if err != nil {
		return "", s.alert(err, s.catalog.Failures.Create)
	}
	s.reload(ctx, true)
	return s.catalog.Admin.Created, nil
}

// StartEdit fills the edit buffer from the loaded copy of entry id.
func (s *Screen) StartEdit(id int) (Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.findLocked(id)
	if err != nil {
		return Form{}, err
	}
	s.editingID = id
	s.edit = Form{
		Question: it.Question,
		Answer:   it.Answer,
		Keywords: strings.Join(it.Keywords, ", "),
		Category: it.Category,
	}
	return s.edit, nil
}

func (s *Screen) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = 0
	s.edit = Form{}
}

// Editing returns the entry being edited and its buffer, if any.
func (s *Screen) Editing() (int, Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID, s.edit, s.editingID != 0
}

// Update saves the form over entry id. Blank form fields keep the entry's
// current values.
func (s *Screen) Update(ctx context.Context, id int, f Form) (string, error) {
	s.mu.Lock()
	it, err := s.findLocked(id)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	question := firstNonEmpty(f.Question, it.Question)
	answer := firstNonEmpty(f.Answer, it.Answer)
	category := firstNonEmpty(f.Category, it.Category)
	keywords := it.Keywords
	if strings.TrimSpace(f.Keywords) != "" {
		keywords = SplitKeywords(f.Keywords)
	}
	_, err = s.kb.UpdateEntry(ctx, id, types.KnowledgeBaseUpdate{
		Question: &question,
		Answer:   &answer,
		Keywords: keywords,
		Category: &category,
	})
	if err != nil {
		return "", s.alert(err, s.catalog.Failures.Update)
	}
	s.CancelEdit()
	s.reload(ctx, false)
	return s.catalog.Admin.Updated, nil
}

// DeletePrompt is the question to confirm before Delete.
func (s *Screen) DeletePrompt() string { return s.catalog.Admin.DeletePrompt }

func (s *Screen) Delete(ctx context.Context, id int, confirmed bool) (string, error) {
	if !confirmed {
		return "", ErrNotConfirmed
	}
	if err := s.kb.DeleteEntry(ctx, id); err != nil {
		return "", s.alert(err, s.catalog.Failures.Delete)
	}
	s.reload(ctx, true)
	return s.catalog.Admin.Deleted, nil
}

func (s *Screen) reload(ctx context.Context, withCategories bool) {
	if err := s.loadItems(ctx); err != nil {
		log.WithError(err).Warn("could not reload knowledge base")
	}
	if withCategories {
		s.loadCategories(ctx)
	}
}

func (s *Screen) findLocked(id int) (types.KnowledgeBaseEntry, error) {
	if !s.loaded {
		return types.KnowledgeBaseEntry{}, ErrNotLoaded
	}
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return types.KnowledgeBaseEntry{}, ErrUnknownEntry
}

func (s *Screen) alert(err error, fallback string) error {
	if f, ok := backend.AsFailure(err); ok && f.Message != "" {
		return &Alert{Message: f.Message, Err: err}
	}
	return &Alert{Message: fallback, Err: err}
}

// SplitKeywords turns "a, b ,c" into [a b c], dropping empty items.
func SplitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func firstNonEmpty(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
