package sales

import (
	"context"

	"pos_admin/internal/supabase"
)

const (
	saleTable   = "sale"
	saleColumns = `id, sale_date, total, status, customer!inner (first_name, last_name)`
)

// SupabaseStorage reads and updates sales in the hosted backend.
type SupabaseStorage struct {
	client *supabase.Client
}

func NewSupabaseStorage(client *supabase.Client) *SupabaseStorage {
	return &SupabaseStorage{client: client}
}

func (s *SupabaseStorage) Read(ctx context.Context, id int64) (*Sale, error) {
	var rows []*Sale
	err := s.client.From(saleTable).
		Select(saleColumns).
		Eq("id", id).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *SupabaseStorage) GetAll(ctx context.Context, f Filter) ([]*Sale, error) {
	q := s.client.From(saleTable).
		Select(saleColumns).
		Order("sale_date", false).
		Order("id", false).
		Range(f.Offset, f.Offset+f.Limit-1)
	if f.Status != "" {
		q = q.Eq("status", f.Status)
	}
	rows := make([]*Sale, 0)
	if err := q.Execute(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStorage) Count(ctx context.Context, status Status) (int, error) {
	q := s.client.From(saleTable).Select("id")
	if status != "" {
		q = q.Eq("status", status)
	}
	return q.Count(ctx)
}

func (s *SupabaseStorage) UpdateStatus(ctx context.Context, id int64, status Status) (*Sale, error) {
	var rows []*Sale
	err := s.client.From(saleTable).
		Select(saleColumns).
		Eq("id", id).
		Update(ctx, map[string]Status{"status": status}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
