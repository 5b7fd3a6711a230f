package mapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	minKeyLength     = 4
	gatewayIDLength  = 8
	idSuffixDigits   = 4
	idLeadDigitsUsed = 6
)

// RefSource is the subset of a raw record used to derive its reference code.
type RefSource struct {
	Code              string
	ReferenceKey      string
	AuthorizationCode string
	GatewayID         string
	ID                string
	CreatedAt         time.Time
}

// ReferenceCode picks the first usable identifier in priority order: explicit
// code, reference key, authorization code, gateway id prefix, a code derived
// from the id's digits, and finally a hash of id and creation time. The same
// input always yields the same code.
func ReferenceCode(src RefSource) string {
	if c := strings.TrimSpace(src.Code); c != "" {
		return c
	}
	if k := strings.TrimSpace(src.ReferenceKey); len(k) >= minKeyLength {
		return k
	}
	if a := strings.TrimSpace(src.AuthorizationCode); len(a) >= minKeyLength {
		return a
	}
	if g := strings.TrimSpace(src.GatewayID); g != "" {
		if len(g) > gatewayIDLength {
			g = g[:gatewayIDLength]
		}
		return g
	}
	if code, ok := idDigitsCode(src.ID); ok {
		return code
	}
	return hashCode(src.ID, src.CreatedAt)
}

// idDigitsCode keeps the id's last four digits and appends one digit derived
// from the preceding ones, so ids that share a suffix usually still differ.
func idDigitsCode(id string) (string, bool) {
	var digits strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < idSuffixDigits {
		return "", false
	}

	suffix := d[len(d)-idSuffixDigits:]
	lead := d[:len(d)-idSuffixDigits]
	if len(lead) > idLeadDigitsUsed {
		lead = lead[len(lead)-idLeadDigitsUsed:]
	}

	var leadVal int
	if lead != "" {
		leadVal, _ = strconv.Atoi(lead)
	}
	return suffix + strconv.Itoa((leadVal/97)%10), true
}

func hashCode(id string, createdAt time.Time) string {
	seed := id + "|" + createdAt.UTC().Format(time.RFC3339Nano)
	return fmt.Sprintf("%05d", xxhash.Sum64String(seed)%90000+10000)
}
