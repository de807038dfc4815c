package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/V4T54L/tabletop/internal/domain"
)

// MemoryStore is an in-memory domain.Store used by usecase and handler tests.
// It enforces the same uniqueness rules as the real backends.
type MemoryStore struct {
	mu sync.Mutex

	tenants   map[string]domain.Tenant
	directory map[string]domain.DirectoryEntry
	users     map[string]domain.User
	items     map[string]domain.MenuItem
	counters  map[string]int64
	settings  map[string]domain.Settings

	// EnsuredDatasets records every EnsureDataset call as apiKey_dataset.
	EnsuredDatasets []string
	// DatasetErrs makes EnsureDataset fail for the named datasets.
	DatasetErrs map[string]error
	// Err, when set, is returned by every repository call.
	Err error
	// Writes counts successful mutations.
	Writes int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:   make(map[string]domain.Tenant),
		directory: make(map[string]domain.DirectoryEntry),
		users:     make(map[string]domain.User),
		items:     make(map[string]domain.MenuItem),
		counters:  make(map[string]int64),
		settings:  make(map[string]domain.Settings),
	}
}

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

func (s *MemoryStore) Tenants() domain.TenantRepository      { return memTenants{s} }
func (s *MemoryStore) Directory() domain.DirectoryRepository { return memDirectory{s} }
func (s *MemoryStore) Users() domain.UserRepository          { return memUsers{s} }
func (s *MemoryStore) Menu() domain.MenuRepository           { return memMenu{s} }
func (s *MemoryStore) Counters() domain.CounterRepository    { return memCounters{s} }
func (s *MemoryStore) Settings() domain.SettingsRepository   { return memSettings{s} }
func (s *MemoryStore) Migrate(ctx context.Context) error     { return s.Err }
func (s *MemoryStore) Ping(ctx context.Context) error        { return s.Err }
func (s *MemoryStore) Close(ctx context.Context) error       { return nil }

func (s *MemoryStore) EnsureDataset(ctx context.Context, apiKey, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnsuredDatasets = append(s.EnsuredDatasets, domain.DatasetName(apiKey, dataset))
	if err, ok := s.DatasetErrs[dataset]; ok {
		return err
	}
	return nil
}

type memTenants struct{ s *MemoryStore }

func (r memTenants) Create(ctx context.Context, t *domain.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.tenants[t.APIKey]; ok {
		return domain.ErrConflict
	}
	r.s.tenants[t.APIKey] = *t
	r.s.Writes++
	return nil
}

func (r memTenants) FindByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	t, ok := r.s.tenants[apiKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r memTenants) UpdateStatus(ctx context.Context, apiKey string, status domain.TenantStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	t, ok := r.s.tenants[apiKey]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	r.s.tenants[apiKey] = t
	r.s.Writes++
	return nil
}

type memDirectory struct{ s *MemoryStore }

func (r memDirectory) FindByPhoneAndCompany(ctx context.Context, phone, companyID string) (*domain.DirectoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, e := range r.s.directory {
		if e.UserPhone == phone && e.CompanyID == companyID {
			e := e
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memDirectory) Upsert(ctx context.Context, e *domain.DirectoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	k := key(e.UserPhone, e.APIKey)
	if prev, ok := r.s.directory[k]; ok && !prev.CreatedAt.IsZero() {
		e.CreatedAt = prev.CreatedAt
	}
	r.s.directory[k] = *e
	r.s.Writes++
	return nil
}

func (r memDirectory) Delete(ctx context.Context, phone, apiKey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	k := key(phone, apiKey)
	if _, ok := r.s.directory[k]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.directory, k)
	r.s.Writes++
	return nil
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) phoneTaken(u *domain.User) bool {
	if u.IsDeleted {
		return false
	}
	for _, other := range r.s.users {
		if other.APIKey == u.APIKey && other.ID != u.ID && !other.IsDeleted && other.UserPhone == u.UserPhone {
			return true
		}
	}
	return false
}

func (r memUsers) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.users[u.ID]; ok || r.phoneTaken(u) {
		return domain.ErrConflict
	}
	r.s.users[u.ID] = *u
	r.s.Writes++
	return nil
}

func (r memUsers) FindByID(ctx context.Context, apiKey, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok || u.APIKey != apiKey {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindActiveByPhone(ctx context.Context, apiKey, phone string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.users {
		if u.APIKey == apiKey && u.UserPhone == phone && !u.IsDeleted {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memUsers) List(ctx context.Context, apiKey string, f domain.UserFilter) ([]*domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, 0, r.s.Err
	}
	var matched []*domain.User
	for _, u := range r.s.users {
		if u.APIKey != apiKey {
			continue
		}
		if f.Role != "" && u.UserRole != f.Role {
			continue
		}
		switch f.Status {
		case domain.UserStatusActive:
			if u.IsDeleted {
				continue
			}
		case domain.UserStatusDeleted:
			if !u.IsDeleted {
				continue
			}
		}
		u := u
		matched = append(matched, &u)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedDate.After(matched[j].CreatedDate)
	})
	total := int64(len(matched))
	if f.Skip > 0 {
		if f.Skip >= total {
			return []*domain.User{}, total, nil
		}
		matched = matched[f.Skip:]
	}
	if f.Limit > 0 && int64(len(matched)) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (r memUsers) Update(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	prev, ok := r.s.users[u.ID]
	if !ok || prev.APIKey != u.APIKey {
		return domain.ErrNotFound
	}
	if r.phoneTaken(u) {
		return domain.ErrConflict
	}
	r.s.users[u.ID] = *u
	r.s.Writes++
	return nil
}

func (r memUsers) Delete(ctx context.Context, apiKey, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok || u.APIKey != apiKey {
		return domain.ErrNotFound
	}
	delete(r.s.users, id)
	r.s.Writes++
	return nil
}

type memMenu struct{ s *MemoryStore }

func (r memMenu) clash(item *domain.MenuItem) bool {
	for _, other := range r.s.items {
		if other.APIKey != item.APIKey || other.ID == item.ID {
			continue
		}
		if other.ItemName == item.ItemName || (item.ItemCode != "" && other.ItemCode == item.ItemCode) {
			return true
		}
	}
	return false
}

func (r memMenu) Create(ctx context.Context, item *domain.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.items[item.ID]; ok || r.clash(item) {
		return domain.ErrConflict
	}
	r.s.items[item.ID] = *item
	r.s.Writes++
	return nil
}

func (r memMenu) FindByID(ctx context.Context, apiKey, id string) (*domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	item, ok := r.s.items[id]
	if !ok || item.APIKey != apiKey {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

func (r memMenu) List(ctx context.Context, apiKey, category string) ([]*domain.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []*domain.MenuItem{}
	for _, item := range r.s.items {
		if item.APIKey != apiKey || (category != "" && item.Category != category) {
			continue
		}
		item := item
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memMenu) exists(apiKey, excludeID string, match func(domain.MenuItem) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return false, r.s.Err
	}
	for _, item := range r.s.items {
		if item.APIKey == apiKey && item.ID != excludeID && match(item) {
			return true, nil
		}
	}
	return false, nil
}

func (r memMenu) ExistsByName(ctx context.Context, apiKey, name, excludeID string) (bool, error) {
	return r.exists(apiKey, excludeID, func(i domain.MenuItem) bool { return i.ItemName == name })
}

func (r memMenu) ExistsByCode(ctx context.Context, apiKey, code, excludeID string) (bool, error) {
	return r.exists(apiKey, excludeID, func(i domain.MenuItem) bool { return i.ItemCode == code })
}

func (r memMenu) ListCodes(ctx context.Context, apiKey string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var codes []string
	for _, item := range r.s.items {
		if item.APIKey == apiKey {
			codes = append(codes, item.ItemCode)
		}
	}
	return codes, nil
}

func (r memMenu) Update(ctx context.Context, item *domain.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	prev, ok := r.s.items[item.ID]
	if !ok || prev.APIKey != item.APIKey {
		return domain.ErrNotFound
	}
	if r.clash(item) {
		return domain.ErrConflict
	}
	r.s.items[item.ID] = *item
	r.s.Writes++
	return nil
}

func (r memMenu) Delete(ctx context.Context, apiKey, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	item, ok := r.s.items[id]
	if !ok || item.APIKey != apiKey {
		return domain.ErrNotFound
	}
	delete(r.s.items, id)
	r.s.Writes++
	return nil
}

type memCounters struct{ s *MemoryStore }

func (r memCounters) Increment(ctx context.Context, apiKey, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	k := key(apiKey, name)
	v, ok := r.s.counters[k]
	if !ok {
		return 0, domain.ErrNotFound
	}
	v++
	r.s.counters[k] = v
	return v, nil
}

func (r memCounters) Raise(ctx context.Context, apiKey, name string, floor int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	k := key(apiKey, name)
	if v, ok := r.s.counters[k]; !ok || v < floor {
		r.s.counters[k] = floor
	}
	return nil
}

type memSettings struct{ s *MemoryStore }

func (r memSettings) Find(ctx context.Context, apiKey, typ string) (*domain.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	doc, ok := r.s.settings[key(apiKey, typ)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	doc.Fields = fields
	return &doc, nil
}

func (r memSettings) Upsert(ctx context.Context, doc *domain.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.settings[key(doc.APIKey, doc.Type)] = *doc
	r.s.Writes++
	return nil
}
