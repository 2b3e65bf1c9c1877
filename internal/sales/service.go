package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos_admin/internal/auth"
	"pos_admin/internal/events"
)

// Error para transiciones inválidas
var ErrInvalidTransition = errors.New("invalid status transition")

// Error para estados inválidos
var ErrInvalidStatus = errors.New("invalid status value")

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	receiptDateLayout = "02/01/2006"
)

// Service provides high-level sales management operations on a Storage backend.
type Service struct {
	storage   Storage
	publisher events.Publisher
	logger    *zap.Logger
	pageSize  int
	now       func() time.Time
}

// Metadata para la respuesta de búsqueda
type SalesMetadata struct {
	Quantity    int             `json:"quantity"`
	Completed   int             `json:"completed"`
	Canceled    int             `json:"canceled"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewService creates a new Service. A pageSize of zero selects DefaultPageSize.
func NewService(storage Storage, publisher events.Publisher, logger *zap.Logger, pageSize int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return &Service{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

// Page normalizes a 1-based page request into an offset and a limit.
func (s *Service) Page(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.pageSize
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

func parseStatusFilter(status string) (Status, error) {
	if status == "" {
		return "", nil
	}
	st := Status(status)
	if !st.Valid() {
		return "", fmt.Errorf("%w: '%s'", ErrInvalidStatus, status)
	}
	return st, nil
}

// ListSales returns one page of sales, optionally filtered by status, and
// the metadata of that page.
func (s *Service) ListSales(ctx context.Context, page, pageSize int, status string) ([]*Sale, SalesMetadata, error) {
	// 1. Validar el status
	parsedStatus, err := parseStatusFilter(status)
	if err != nil {
		s.logger.Warn("Invalid status filter provided", zap.String("statusFilter", status))
		return nil, SalesMetadata{}, err
	}

	// 2. Obtener la página del storage
	offset, limit := s.Page(page, pageSize)
	results, err := s.storage.GetAll(ctx, Filter{Offset: offset, Limit: limit, Status: parsedStatus})
	if err != nil {
		s.logger.Error("Failed to get sales from storage", zap.Error(err))
		return nil, SalesMetadata{}, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	// 3. Calcular metadatos
	metadata := SalesMetadata{TotalAmount: decimal.Zero}
	for _, sale := range results {
		metadata.Quantity++
		metadata.TotalAmount = metadata.TotalAmount.Add(sale.Total)
		switch sale.Status {
		case StatusCompleted:
			metadata.Completed++
		case StatusCanceled:
			metadata.Canceled++
		}
	}

	s.logger.Info("Sales search completed",
		zap.String("status_filter", status),
		zap.Int("page", page),
		zap.Int("results_count", len(results)),
		zap.Any("metadata", metadata),
	)

	return results, metadata, nil
}

// CountSales returns the number of sales with status, or of all sales when
// status is empty.
func (s *Service) CountSales(ctx context.Context, status string) (int, error) {
	parsedStatus, err := parseStatusFilter(status)
	if err != nil {
		return 0, err
	}
	n, err := s.storage.Count(ctx, parsedStatus)
	if err != nil {
		s.logger.Error("failed to count sales", zap.Error(err))
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return n, nil
}

// GetSale fetches one sale.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.storage.Read(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to read sale", zap.Int64("sale_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to read sale: %w", err)
	}
	return sale, nil
}

// Modificar el estado de una venta
func (s *Service) UpdateSaleStatus(ctx context.Context, id int64, newStatus string) (*Sale, error) {
	status := Status(newStatus)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.Status == status {
		return nil, ErrInvalidTransition
	}
	return s.setStatus(ctx, sale, status)
}

// ToggleSaleStatus flips a completed sale to canceled and anything else to
// completed.
func (s *Service) ToggleSaleStatus(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, sale, sale.Status.Toggled())
}

func (s *Service) setStatus(ctx context.Context, sale *Sale, status Status) (*Sale, error) {
	previous := sale.Status
	updated, err := s.storage.UpdateStatus(ctx, sale.ID, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to update sale", zap.Int64("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	ev := events.Event{
		Type:     events.TypeSaleStatusChanged,
		EntityID: fmt.Sprint(sale.ID),
		Actor:    auth.UserID(ctx),
		At:       s.now().UTC(),
		Payload:  map[string]Status{"from": previous, "to": updated.Status},
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", ev.Type), zap.Int64("sale_id", sale.ID), zap.Error(err))
	}

	s.logger.Info("sale status updated", zap.Int64("sale_id", sale.ID), zap.String("from", string(previous)), zap.String("to", string(updated.Status)))
	return updated, nil
}

// Receipt builds the printable receipt ("boleta") of a sale.
func (s *Service) Receipt(ctx context.Context, id int64) (*Receipt, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		SaleID:      sale.ID,
		Customer:    sale.Customer.FullName(),
		Date:        sale.SaleDate.Format(receiptDateLayout),
		Total:       sale.Total.StringFixed(2),
		Status:      sale.Status,
		StatusLabel: sale.Status.Label(),
		IssuedAt:    s.now().UTC(),
	}, nil
}
