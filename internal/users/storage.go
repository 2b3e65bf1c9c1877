package users

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a member with the given ID is not found.
var ErrNotFound = errors.New("user not found")

// ErrEmptyID is returned when trying to store a member with an empty ID.
var ErrEmptyID = errors.New("empty member ID")

// Storage is the member data access layer. Every method is one round trip
// to whatever holds the members.
type Storage interface {
	GetAll(ctx context.Context, offset, limit int) ([]*Member, error)
	Count(ctx context.Context) (int, error)
	Read(ctx context.Context, id string) (*Member, error)
	Update(ctx context.Context, m *Member) ([]*Member, error)
	UpdateNames(ctx context.Context, id, name, lastname string) (*Member, error)
}

// Credentials changes the password and metadata of the user owning token.
type Credentials interface {
	UpdateCredentials(ctx context.Context, token, password string, metadata map[string]any) error
}

// CredentialsError is returned by Credentials when the change fails.
// Rejected is set when the auth service refused the request itself.
type CredentialsError struct {
	Code     string
	Message  string
	Rejected bool
}

func (e *CredentialsError) Error() string {
	return "credentials: " + e.Message
}

// LocalStorage provides an in-memory implementation for storing members.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[string]*Member
}

// NewLocalStorage instantiates a new LocalStorage with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Member{},
	}
}

// Set stores a copy of m. Returns ErrEmptyID if the member has an empty ID.
func (l *LocalStorage) Set(m *Member) error {
	if m.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *m
	l.m[m.ID] = &cp
	return nil
}

// GetAll returns members ordered by ID, skipping offset and returning at
// most limit of them.
func (l *LocalStorage) GetAll(_ context.Context, offset, limit int) ([]*Member, error) {
	if offset < 0 || limit <= 0 {
		return []*Member{}, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.m))
	for id := range l.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	members := make([]*Member, 0, limit)
	for i := offset; i < len(ids) && len(members) < limit; i++ {
		cp := *l.m[ids[i]]
		members = append(members, &cp)
	}
	return members, nil
}

func (l *LocalStorage) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.m), nil
}

// Read retrieves a member by ID.
// Returns ErrNotFound if the member is not found.
func (l *LocalStorage) Read(_ context.Context, id string) (*Member, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (l *LocalStorage) Update(_ context.Context, m *Member) ([]*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.m[m.ID]; !ok {
		return nil, ErrNotFound
	}
	cp := *m
	l.m[m.ID] = &cp
	out := cp
	return []*Member{&out}, nil
}

func (l *LocalStorage) UpdateNames(_ context.Context, id, name, lastname string) (*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Name = name
	m.Lastname = lastname
	cp := *m
	return &cp, nil
}

// LocalCredentials keeps one password per token in memory.
type LocalCredentials struct {
	mu        sync.Mutex
	passwords map[string]string
	metadata  map[string]map[string]any
}

func NewLocalCredentials() *LocalCredentials {
	return &LocalCredentials{
		passwords: map[string]string{},
		metadata:  map[string]map[string]any{},
	}
}

func (l *LocalCredentials) UpdateCredentials(_ context.Context, token, password string, metadata map[string]any) error {
	if token == "" {
		return &CredentialsError{Code: "no_authorization", Message: "missing access token", Rejected: true}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.passwords[token]; ok && prev == password {
		return &CredentialsError{Code: "same_password", Message: "new password should be different from the old password", Rejected: true}
	}
	l.passwords[token] = password
	l.metadata[token] = metadata
	return nil
}

// Metadata returns the metadata last stored for token.
func (l *LocalCredentials) Metadata(token string) map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metadata[token]
}
