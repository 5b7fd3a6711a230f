package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromQuery(t *testing.T) {
	sp := time.FixedZone("BRT", -3*3600)
	q := url.Values{
		"start_date":     {"2026-03-01"},
		"end_date":       {"2026-03-31"},
		"payment_method": {"pix,credit_card", "boleto"},
		"status":         {"paid"},
		"min_amount":     {"10,50"},
		"max_amount":     {"1000"},
		"search":         {" pedido "},
		"acquirer":       {"stone"},
	}

	opts, errs := FromQuery(q, sp)
	require.Empty(t, errs)

	require.NotNil(t, opts.StartDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, sp), *opts.StartDate)
	require.NotNil(t, opts.EndDate)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, sp), *opts.EndDate)
	assert.Equal(t, []string{"pix", "credit_card", "boleto"}, opts.PaymentMethods)
	assert.Equal(t, []string{"paid"}, opts.Statuses)
	require.NotNil(t, opts.MinAmount)
	assert.Equal(t, int64(1050), *opts.MinAmount)
	require.NotNil(t, opts.MaxAmount)
	assert.Equal(t, int64(100000), *opts.MaxAmount)
	assert.Equal(t, "pedido", opts.Search)
	assert.Equal(t, "stone", opts.Acquirer)
}

func TestFromQuery_Errors(t *testing.T) {
	q := url.Values{
		"start_date": {"2026-03-10"},
		"end_date":   {"2026-03-01"},
		"min_amount": {"abc"},
	}

	_, errs := FromQuery(q, nil)
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"end_date", "min_amount"}, fields)
}

func TestFromQuery_Empty(t *testing.T) {
	opts, errs := FromQuery(url.Values{}, nil)
	assert.Empty(t, errs)
	assert.Nil(t, opts.StartDate)
	assert.Nil(t, opts.PaymentMethods)
}
