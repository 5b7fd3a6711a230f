// Package merge deduplicates operations collected from overlapping feeds.
package merge

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josh-kwaku/backoffice/internal/domain"
)

// Key is the composite identity of an operation. Two operations are the same
// logical record only when every component matches; the same id with a
// different amount is a discrepancy, not a duplicate.
func Key(op domain.BalanceOperation) string {
	identity := op.RealCode
	if identity == "" {
		identity = op.ID
	}
	return strings.Join([]string{
		identity,
		strconv.FormatInt(op.Amount, 10),
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
		op.PaymentMethod,
	}, "|")
}

// Deduplicate keeps the first occurrence of each key, preserving order.
func Deduplicate(ops []domain.BalanceOperation) []domain.BalanceOperation {
	seen := make(map[string]struct{}, len(ops))
	out := make([]domain.BalanceOperation, 0, len(ops))
	for _, op := range ops {
		k := Key(op)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, op)
	}
	return out
}

// Merge combines two feeds. Records from primary win on key collisions and
// come first in the result.
func Merge(primary, secondary []domain.BalanceOperation) []domain.BalanceOperation {
	combined := make([]domain.BalanceOperation, 0, len(primary)+len(secondary))
	combined = append(combined, primary...)
	combined = append(combined, secondary...)
	return Deduplicate(combined)
}

type Conflict struct {
	ID      string
	Amounts []int64
}

type IntegrityReport struct {
	Checked         int
	DuplicateKeys   []string
	MissingIdentity []int
	Conflicts       []Conflict
}

func (r IntegrityReport) OK() bool {
	return len(r.DuplicateKeys) == 0 && len(r.MissingIdentity) == 0 && len(r.Conflicts) == 0
}

func (r IntegrityReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%d duplicate keys, %d records without identity, %d conflicting ids: %w",
		len(r.DuplicateKeys), len(r.MissingIdentity), len(r.Conflicts), domain.ErrIntegrityViolation)
}

// CheckIntegrity reports problems in ops without changing them: keys that
// occur more than once, records with neither real code nor id (by index), and
// ids that appear with more than one amount.
func CheckIntegrity(ops []domain.BalanceOperation) IntegrityReport {
	report := IntegrityReport{Checked: len(ops)}

	keyCount := make(map[string]int, len(ops))
	var keyOrder []string
	amountsByID := make(map[string][]int64)
	var idOrder []string

	for i, op := range ops {
		if op.RealCode == "" && op.ID == "" {
			report.MissingIdentity = append(report.MissingIdentity, i)
		}

		k := Key(op)
		if keyCount[k] == 0 {
			keyOrder = append(keyOrder, k)
		}
		keyCount[k]++

		if op.ID == "" {
			continue
		}
		amounts, ok := amountsByID[op.ID]
		if !ok {
			idOrder = append(idOrder, op.ID)
		}
		if !containsAmount(amounts, op.Amount) {
			amountsByID[op.ID] = append(amounts, op.Amount)
		}
	}

	for _, k := range keyOrder {
		if keyCount[k] > 1 {
			report.DuplicateKeys = append(report.DuplicateKeys, k)
		}
	}
	for _, id := range idOrder {
		if amounts := amountsByID[id]; len(amounts) > 1 {
			report.Conflicts = append(report.Conflicts, Conflict{ID: id, Amounts: amounts})
		}
	}
	return report
}

func containsAmount(amounts []int64, v int64) bool {
	for _, a := range amounts {
		if a == v {
			return true
		}
	}
	return false
}
