package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
	"github.com/josh-kwaku/backoffice/internal/format"
)

type QueryError struct {
	Field   string
	Message string
}

const dateLayout = "2006-01-02"

// FromQuery reads filter options from operator query parameters. Dates are
// YYYY-MM-DD or RFC3339; a plain end_date covers the whole day in loc.
// Amounts are in reais.
func FromQuery(q url.Values, loc *time.Location) (domain.FilterOptions, []QueryError) {
	if loc == nil {
		loc = time.UTC
	}

	var (
		opts domain.FilterOptions
		errs []QueryError
	)

	if v := q.Get("start_date"); v != "" {
		t, dateOnly, err := parseDate(v, loc)
		if err != nil {
			errs = append(errs, QueryError{Field: "start_date", Message: "must be YYYY-MM-DD or RFC3339"})
		} else {
			if dateOnly {
				t = format.StartOfDay(t, loc)
			}
			opts.StartDate = &t
		}
	}

	if v := q.Get("end_date"); v != "" {
		t, dateOnly, err := parseDate(v, loc)
		if err != nil {
			errs = append(errs, QueryError{Field: "end_date", Message: "must be YYYY-MM-DD or RFC3339"})
		} else {
			if dateOnly {
				t = format.EndOfDay(t, loc)
			}
			opts.EndDate = &t
		}
	}

	if opts.StartDate != nil && opts.EndDate != nil && opts.EndDate.Before(*opts.StartDate) {
		errs = append(errs, QueryError{Field: "end_date", Message: "must not be before start_date"})
	}

	opts.PaymentMethods = listParam(q, "payment_method")
	opts.Statuses = listParam(q, "status")

	if v := q.Get("min_amount"); v != "" {
		if n, err := format.ParseAmount(v); err != nil {
			errs = append(errs, QueryError{Field: "min_amount", Message: "must be a decimal amount"})
		} else {
			opts.MinAmount = &n
		}
	}
	if v := q.Get("max_amount"); v != "" {
		if n, err := format.ParseAmount(v); err != nil {
			errs = append(errs, QueryError{Field: "max_amount", Message: "must be a decimal amount"})
		} else {
			opts.MaxAmount = &n
		}
	}
	if opts.MinAmount != nil && opts.MaxAmount != nil && *opts.MaxAmount < *opts.MinAmount {
		errs = append(errs, QueryError{Field: "max_amount", Message: "must not be below min_amount"})
	}

	opts.Search = strings.TrimSpace(q.Get("search"))
	opts.Acquirer = strings.TrimSpace(q.Get("acquirer"))
	opts.CardBrand = strings.TrimSpace(q.Get("card_brand"))

	return opts, errs
}

func parseDate(v string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}

// listParam accepts repeated parameters and comma-separated values.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
