package users

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"pos_admin/internal/supabase"
)

const (
	memberTable     = "member"
	memberRoleTable = "member_role"
	memberColumns   = `id, name, lastname, member_role!inner (role, status)`
)

// memberRow is a member as the backend returns it, with its role row
// embedded. The embed is an array or a single object depending on how the
// relationship is declared, so it is decoded lazily.
type memberRow struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Lastname   string          `json:"lastname"`
	MemberRole json.RawMessage `json:"member_role"`
}

type memberRoleRow struct {
	Role   Role   `json:"role"`
	Status Status `json:"status"`
}

func (r memberRow) toMember() *Member {
	m := &Member{ID: r.ID, Name: r.Name, Lastname: r.Lastname}
	if role, ok := firstRole(r.MemberRole); ok {
		m.Role = role.Role
		m.Status = role.Status
	}
	return m
}

func firstRole(raw json.RawMessage) (memberRoleRow, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return memberRoleRow{}, false
	}
	if raw[0] == '[' {
		var rows []memberRoleRow
		if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
			return memberRoleRow{}, false
		}
		return rows[0], true
	}
	var row memberRoleRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return memberRoleRow{}, false
	}
	return row, true
}

// SupabaseStorage keeps members in the hosted backend.
type SupabaseStorage struct {
	client *supabase.Client
}

func NewSupabaseStorage(client *supabase.Client) *SupabaseStorage {
	return &SupabaseStorage{client: client}
}

func (s *SupabaseStorage) GetAll(ctx context.Context, offset, limit int) ([]*Member, error) {
	var rows []memberRow
	err := s.client.From(memberTable).
		Select(memberColumns).
		Order("id", true).
		Range(offset, offset+limit-1).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.toMember())
	}
	return members, nil
}

func (s *SupabaseStorage) Count(ctx context.Context) (int, error) {
	return s.client.From(memberTable).Select(memberColumns).Count(ctx)
}

func (s *SupabaseStorage) Read(ctx context.Context, id string) (*Member, error) {
	var rows []memberRow
	err := s.client.From(memberTable).
		Select(memberColumns).
		Eq("id", id).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toMember(), nil
}

// Update writes the role row first so that a member without one is left
// untouched.
func (s *SupabaseStorage) Update(ctx context.Context, m *Member) ([]*Member, error) {
	var roles []memberRoleRow
	err := s.client.From(memberRoleTable).
		Eq("member_id", m.ID).
		Update(ctx, memberRoleRow{Role: m.Role, Status: m.Status}, &roles)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	if len(roles) == 0 {
		return nil, ErrNotFound
	}

	var updated []memberRow
	err = s.client.From(memberTable).
		Eq("id", m.ID).
		Update(ctx, map[string]string{"name": m.Name, "lastname": m.Lastname}, &updated)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	if len(updated) == 0 {
		return nil, ErrNotFound
	}

	members := make([]*Member, 0, len(updated))
	for _, r := range updated {
		members = append(members, &Member{
			ID:       r.ID,
			Name:     r.Name,
			Lastname: r.Lastname,
			Role:     roles[0].Role,
			Status:   roles[0].Status,
		})
	}
	return members, nil
}

// UpdateNames goes through the update_member database function, which keeps
// the member row and its auth metadata consistent on the backend side.
func (s *SupabaseStorage) UpdateNames(ctx context.Context, id, name, lastname string) (*Member, error) {
	params := map[string]string{
		"member_id":       id,
		"member_lastname": lastname,
		"member_name":     name,
	}
	if err := s.client.RPC(ctx, "update_member", params, nil); err != nil {
		return nil, err
	}
	return s.Read(ctx, id)
}

// SupabaseCredentials changes credentials through the backend auth API.
type SupabaseCredentials struct {
	client *supabase.Client
}

func NewSupabaseCredentials(client *supabase.Client) *SupabaseCredentials {
	return &SupabaseCredentials{client: client}
}

func (s *SupabaseCredentials) UpdateCredentials(ctx context.Context, token, password string, metadata map[string]any) error {
	_, err := s.client.UpdateAuthUser(ctx, token, supabase.UserAttributes{Password: password, Data: metadata})
	if err == nil {
		return nil
	}
	if authErr, ok := supabase.AsAuthError(err); ok {
		return &CredentialsError{Code: authErr.Code, Message: authErr.Message, Rejected: authErr.IsAPIError()}
	}
	return &CredentialsError{Message: err.Error()}
}
