package supabase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Query builds a single PostgREST request against one table.
type Query struct {
	client *Client
	table  string
	params map[string]string
	order  []string
}

// Select sets the column list, including embedded resources such as
// "id,name,member_role!inner(role,status)".
func (q *Query) Select(columns string) *Query {
	q.params["select"] = compactColumns(columns)
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	q.params[column] = "eq." + fmt.Sprint(value)
	return q
}

// Range limits the result to rows from..to, both inclusive and zero based.
// A negative or inverted range selects no rows.
func (q *Query) Range(from, to int) *Query {
	if from < 0 || to < from {
		q.params["offset"] = "0"
		q.params["limit"] = "0"
		return q
	}
	q.params["offset"] = strconv.Itoa(from)
	q.params["limit"] = strconv.Itoa(to - from + 1)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

func (q *Query) query() map[string]string {
	out := make(map[string]string, len(q.params)+1)
	for k, v := range q.params {
		out[k] = v
	}
	if len(q.order) > 0 {
		out["order"] = strings.Join(q.order, ",")
	}
	return out
}

func (q *Query) hasFilter() bool {
	for k := range q.params {
		switch k {
		case "select", "offset", "limit":
		default:
			return true
		}
	}
	return false
}

func (q *Query) path() string {
	return "/rest/v1/" + q.table
}

// Execute runs the select and decodes the rows into dst, which must be a
// pointer to a slice.
func (q *Query) Execute(ctx context.Context, dst any) error {
	if q.table == "" {
		return fmt.Errorf("table is required")
	}
	apiErr := &APIError{}
	res, err := q.client.request(ctx).
		SetQueryParams(q.query()).
		SetResult(dst).
		SetError(apiErr).
		Get(q.path())
	if err != nil {
		return fmt.Errorf("select %s: %w", q.table, err)
	}
	return checkResponse(res, apiErr)
}

// Count returns the exact number of rows matching the query without
// transferring them.
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.table == "" {
		return 0, fmt.Errorf("table is required")
	}
	res, err := q.client.request(ctx).
		SetQueryParams(q.query()).
		SetHeader("Prefer", "count=exact").
		Head(q.path())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	if res.IsError() {
		return 0, &APIError{Status: res.StatusCode(), Message: fmt.Sprintf("count %s failed", q.table)}
	}
	return parseContentRange(res.Header().Get("Content-Range"))
}

// Update patches every row matching the filters with body and decodes the
// updated rows into dst (may be nil).
func (q *Query) Update(ctx context.Context, body any, dst any) error {
	if q.table == "" {
		return fmt.Errorf("table is required")
	}
	if !q.hasFilter() {
		return fmt.Errorf("update %s: refusing to update without a filter", q.table)
	}
	apiErr := &APIError{}
	req := q.client.request(ctx).
		SetQueryParams(q.query()).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetError(apiErr)
	if dst != nil {
		req.SetResult(dst)
	}
	res, err := req.Patch(q.path())
	if err != nil {
		return fmt.Errorf("update %s: %w", q.table, err)
	}
	return checkResponse(res, apiErr)
}

// parseContentRange reads the total from a header like "0-9/42" or "*/42".
func parseContentRange(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("invalid content-range %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("content-range %q has no exact count", header)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("invalid content-range %q: %w", header, err)
	}
	return n, nil
}

func compactColumns(columns string) string {
	return strings.Join(strings.Fields(columns), "")
}
