package reporting

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
)

const dateLayout = "2006-01-02"

// ParseQuery reads paging and filter parameters from the request query
// string. Dates accept RFC 3339 or YYYY-MM-DD; a bare end date covers the
// whole day.
func ParseQuery(c *fiber.Ctx) (ledger.EntryQuery, error) {
	const op = "reporting.ParseQuery"
	var q ledger.EntryQuery
	var err error

	if q.Page, err = intParam(c, "page"); err != nil {
		return q, domain.Validation(op, "page must be a number")
	}
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return q, domain.Validation(op, "limit must be a number")
	}

	if v := strings.ToUpper(strings.TrimSpace(c.Query("type"))); v != "" {
		q.Type = domain.EntryType(v)
		if !q.Type.Valid() {
			return q, domain.Validation(op, "unknown transaction type %q", v)
		}
	}
	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		q.Status = domain.EntryStatus(v)
		switch q.Status {
		case domain.EntryPending, domain.EntryCompleted, domain.EntryFailed, domain.EntryCancelled:
		default:
			return q, domain.Validation(op, "unknown transaction status %q", v)
		}
	}

	if q.From, err = timeParam(c.Query("startDate"), false); err != nil {
		return q, domain.Validation(op, "startDate: %v", err)
	}
	if q.To, err = timeParam(c.Query("endDate"), true); err != nil {
		return q, domain.Validation(op, "endDate: %v", err)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, domain.Validation(op, "endDate is before startDate")
	}

	if q.MinAmount, err = amountParam(c, "minAmount"); err != nil {
		return q, domain.Validation(op, "minAmount must be a non-negative integer")
	}
	if q.MaxAmount, err = amountParam(c, "maxAmount"); err != nil {
		return q, domain.Validation(op, "maxAmount must be a non-negative integer")
	}
	if q.MaxAmount > 0 && q.MaxAmount < q.MinAmount {
		return q, domain.Validation(op, "maxAmount is below minAmount")
	}
	return q.Normalize(), nil
}

func intParam(c *fiber.Ctx, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func amountParam(c *fiber.Ctx, name string) (int64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func timeParam(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
