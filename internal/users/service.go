package users

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"pos_admin/internal/auth"
	"pos_admin/internal/events"
	"pos_admin/internal/supabase"
)

var (
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidLastname = errors.New("lastname is required")
	ErrInvalidRole     = errors.New("invalid role value")
	ErrInvalidStatus   = errors.New("invalid status value")
	ErrInvalidID       = errors.New("member id is required")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// DefaultLookupTimeout bounds a single member lookup.
	DefaultLookupTimeout = 3 * time.Second

	minPasswordLength = 6

	msgSamePassword   = "La nueva contraseña debe ser diferente a la anterior"
	msgUpdateFailed   = "error al actualizar el usuario"
	NameAuthError     = "Error de autenticacion"
	nameValidation    = "Error de validacion"
	nameInternalError = "InternalError"
)

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	PageSize      int
	LookupTimeout time.Duration
}

// Service provides the member administration operations on a Storage backend.
type Service struct {
	storage     Storage
	credentials Credentials
	publisher   events.Publisher
	logger      *zap.Logger
	opts        Options
}

// NewService creates a new Service.
func NewService(storage Storage, credentials Credentials, publisher events.Publisher, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}

	return &Service{
		storage:     storage,
		credentials: credentials,
		publisher:   publisher,
		logger:      logger,
		opts:        opts,
	}
}

// Page normalizes a 1-based page request into an offset and a limit.
func (s *Service) Page(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.opts.PageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	// pages past the addressable range land beyond the last row
	if page-1 > (math.MaxInt-pageSize)/pageSize {
		return math.MaxInt - pageSize, pageSize
	}
	return (page - 1) * pageSize, pageSize
}

// GetAllUsers returns one page of members.
func (s *Service) GetAllUsers(ctx context.Context, page, pageSize int) ([]*Member, error) {
	offset, limit := s.Page(page, pageSize)
	members, err := s.storage.GetAll(ctx, offset, limit)
	if err != nil {
		s.logger.Error("failed to fetch users", zap.Int("page", page), zap.Int("page_size", limit), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return members, nil
}

// CountUsers returns the number of members that have a role.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.storage.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", zap.Error(err))
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetUserByID fetches one member, giving up after the lookup timeout.
func (s *Service) GetUserByID(ctx context.Context, id string) (*Member, error) {
	if blank(id) {
		return nil, ErrInvalidID
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	m, err := s.storage.Read(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to fetch user", zap.String("member_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return m, nil
}

// UpdateUser writes names, role and status of a member and returns the
// updated rows.
func (s *Service) UpdateUser(ctx context.Context, m *Member) ([]*Member, error) {
	if err := validateMember(m); err != nil {
		return nil, err
	}

	updated, err := s.storage.Update(ctx, m)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("error al actualizar usuario", zap.String("member_id", m.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeUserUpdated,
		EntityID: m.ID,
		Payload:  m,
	})
	s.logger.Info("user updated", zap.String("member_id", m.ID), zap.String("role", string(m.Role)), zap.String("status", string(m.Status)))
	return updated, nil
}

// UpdateUserProfile changes the caller's password and names. The password
// goes to the auth service with token; the names go through the member
// store. Failures come back as *ProfileError.
func (s *Service) UpdateUserProfile(ctx context.Context, token string, p Profile) (*Member, error) {
	if perr := validateProfile(p); perr != nil {
		return nil, perr
	}

	metadata := map[string]any{
		"name":     p.Name,
		"lastName": p.Lastname,
		"status":   StatusActive,
	}
	if err := s.credentials.UpdateCredentials(ctx, token, p.ConfirmPassword, metadata); err != nil {
		s.logger.Warn("auth update rejected", zap.String("member_id", p.ID), zap.Error(err))
		var credErr *CredentialsError
		if errors.As(err, &credErr) {
			msg := msgUpdateFailed
			if credErr.Rejected {
				msg = msgSamePassword
			}
			return nil, &ProfileError{Message: msg, Code: credErr.Code, Name: NameAuthError}
		}
		return nil, &ProfileError{Message: "Internal server error", Code: "500", Name: nameInternalError}
	}

	m, err := s.storage.UpdateNames(ctx, p.ID, p.Name, p.Lastname)
	if err != nil {
		s.logger.Error("failed to update member names", zap.String("member_id", p.ID), zap.Error(err))
		return nil, storageProfileError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeProfileUpdated,
		EntityID: p.ID,
		Payload:  map[string]string{"name": p.Name, "lastname": p.Lastname},
	})
	return m, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	ev.Actor = auth.UserID(ctx)
	ev.At = time.Now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", ev.Type), zap.String("entity_id", ev.EntityID), zap.Error(err))
	}
}

func validateMember(m *Member) error {
	switch {
	case m == nil || blank(m.ID):
		return ErrInvalidID
	case blank(m.Name):
		return ErrInvalidName
	case blank(m.Lastname):
		return ErrInvalidLastname
	case !m.Role.Valid():
		return fmt.Errorf("%w: '%s'", ErrInvalidRole, m.Role)
	case !m.Status.Valid():
		return fmt.Errorf("%w: '%s'", ErrInvalidStatus, m.Status)
	}
	return nil
}

func validateProfile(p Profile) *ProfileError {
	var msg string
	switch {
	case blank(p.ID):
		msg = ErrInvalidID.Error()
	case blank(p.Name):
		msg = ErrInvalidName.Error()
	case blank(p.Lastname):
		msg = ErrInvalidLastname.Error()
	case utf8.RuneCountInString(p.Password) < minPasswordLength:
		msg = fmt.Sprintf("password must have at least %d characters", minPasswordLength)
	case p.Password != p.ConfirmPassword:
		msg = "passwords do not match"
	default:
		return nil
	}
	return &ProfileError{Message: msg, Code: "400", Name: nameValidation}
}

func storageProfileError(err error) *ProfileError {
	if errors.Is(err, ErrNotFound) {
		return &ProfileError{Message: ErrNotFound.Error(), Code: "404", Name: "NotFound"}
	}
	if apiErr, ok := supabase.AsAPIError(err); ok {
		return &ProfileError{Message: apiErr.Message, Code: apiErr.Code, Name: apiErr.Hint}
	}
	return &ProfileError{Message: "Internal server error", Code: "500", Name: nameInternalError}
}
