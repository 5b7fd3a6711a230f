// Package filter narrows the collected operations and transactions.
package filter

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

type Result struct {
	Operations   []domain.BalanceOperation
	Transactions []domain.Transaction
}

// Apply returns the records matching every active field of opts. Inputs are
// not modified.
func Apply(ops []domain.BalanceOperation, txs []domain.Transaction, opts domain.FilterOptions) Result {
	m := compile(opts)

	res := Result{
		Operations:   make([]domain.BalanceOperation, 0, len(ops)),
		Transactions: make([]domain.Transaction, 0, len(txs)),
	}
	for _, op := range ops {
		if m.operation(op) {
			res.Operations = append(res.Operations, op)
		}
	}
	for _, tx := range txs {
		if m.transaction(tx) {
			res.Transactions = append(res.Transactions, tx)
		}
	}
	return res
}

func Operations(ops []domain.BalanceOperation, opts domain.FilterOptions) []domain.BalanceOperation {
	return Apply(ops, nil, opts).Operations
}

type matcher struct {
	opts     domain.FilterOptions
	methods  map[string]struct{}
	statuses map[string]struct{}
	search   string
	acquirer string
	brand    string
}

func compile(opts domain.FilterOptions) matcher {
	return matcher{
		opts:     opts,
		methods:  toSet(opts.PaymentMethods),
		statuses: toSet(opts.Statuses),
		search:   Fold(opts.Search),
		acquirer: Fold(opts.Acquirer),
		brand:    Fold(opts.CardBrand),
	}
}

func (m matcher) operation(op domain.BalanceOperation) bool {
	return m.common(op.CreatedAt, op.PaymentMethod, op.Status, op.Amount) &&
		m.text(op.Description, op.RealCode, op.ID) &&
		contains(op.AcquirerName, m.acquirer) &&
		contains(op.CardBrand, m.brand)
}

func (m matcher) transaction(tx domain.Transaction) bool {
	return m.common(tx.CreatedAt, tx.PaymentMethod, tx.Status, tx.Amount) &&
		m.text(tx.Description, tx.RealCode, tx.ID) &&
		contains(tx.AcquirerName, m.acquirer) &&
		contains(tx.CardBrand, m.brand)
}

func (m matcher) common(createdAt time.Time, method, status string, amount int64) bool {
	if m.opts.StartDate != nil && createdAt.Before(*m.opts.StartDate) {
		return false
	}
	if m.opts.EndDate != nil && createdAt.After(*m.opts.EndDate) {
		return false
	}
	if !inSet(m.methods, method) || !inSet(m.statuses, status) {
		return false
	}
	if m.opts.MinAmount != nil && amount < *m.opts.MinAmount {
		return false
	}
	if m.opts.MaxAmount != nil && amount > *m.opts.MaxAmount {
		return false
	}
	return true
}

func (m matcher) text(fields ...string) bool {
	if m.search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Fold(f), m.search) {
			return true
		}
	}
	return false
}

// contains reports whether value holds the folded needle; an empty needle
// always matches.
func contains(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(value), needle)
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func inSet(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[strings.ToLower(v)]
	return ok
}

// Fold lowercases s and strips diacritics so "Cartão" matches "cartao".
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
