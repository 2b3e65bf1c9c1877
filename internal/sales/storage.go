package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// ErrEmptyID is returned when trying to store a sale with an empty ID.
var ErrEmptyID = errors.New("empty sale ID")

// Filter selects a window of sales, newest first.
type Filter struct {
	Offset int
	Limit  int
	Status Status // empty for any status
}

// Storage is the main interface for our sales storage layer.
type Storage interface {
	Read(ctx context.Context, id int64) (*Sale, error)
	GetAll(ctx context.Context, f Filter) ([]*Sale, error)
	Count(ctx context.Context, status Status) (int, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Sale, error)
}

// LocalStorage provides an in-memory implementation for storing sales.
type LocalStorage struct {
	mu sync.RWMutex
	m  map[int64]*Sale
}

// NewLocalStorage instantiates a new LocalStorage for sales with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[int64]*Sale{},
	}
}

// Set stores a copy of sale.
// Returns ErrEmptyID if the sale has no ID.
func (l *LocalStorage) Set(sale *Sale) error {
	if sale.ID == 0 {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *sale
	l.m[sale.ID] = &cp
	return nil
}

// Read retrieves a sale from the local storage by ID.
// Returns ErrNotFound if the sale is not found.
func (l *LocalStorage) Read(_ context.Context, id int64) (*Sale, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// GetAll returns the sales matching f, newest first.
func (l *LocalStorage) GetAll(_ context.Context, f Filter) ([]*Sale, error) {
	if f.Offset < 0 || f.Limit <= 0 {
		return []*Sale{}, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]*Sale, 0, len(l.m))
	for _, s := range l.m {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SaleDate.Equal(matched[j].SaleDate) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].SaleDate.After(matched[j].SaleDate)
	})

	sales := make([]*Sale, 0, f.Limit)
	for i := f.Offset; i < len(matched) && len(sales) < f.Limit; i++ {
		cp := *matched[i]
		sales = append(sales, &cp)
	}
	return sales, nil
}

func (l *LocalStorage) Count(_ context.Context, status Status) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if status == "" {
		return len(l.m), nil
	}
	n := 0
	for _, s := range l.m {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

func (l *LocalStorage) UpdateStatus(_ context.Context, id int64, status Status) (*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = status
	cp := *s
	return &cp, nil
}
