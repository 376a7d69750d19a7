package transactions

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// HeuristicConfidence is attached to categories guessed from the merchant table.
const HeuristicConfidence = 0.7

type merchantPattern struct {
	re       *regexp.Regexp
	category string
}

// Checked in order; the first hit wins.
var commonMerchants = []merchantPattern{
	{re: regexp.MustCompile(`(?i)trader\s*joe`), category: "groceries"},
	{re: regexp.MustCompile(`(?i)whole\s*foods`), category: "groceries"},
	{re: regexp.MustCompile(`(?i)costco`), category: "groceries"},
	{re: regexp.MustCompile(`(?i)netflix`), category: "subscriptions"},
	{re: regexp.MustCompile(`(?i)spotify`), category: "subscriptions"},
	{re: regexp.MustCompile(`(?i)uber\s*eats`), category: "dining"},
	{re: regexp.MustCompile(`(?i)mcdonald`), category: "dining"},
	{re: regexp.MustCompile(`(?i)starbucks`), category: "coffee"},
}

// NormalizeMerchant folds a raw description into a merchant key: diacritics
// and punctuation are dropped, whitespace collapsed, letters upper-cased.
// Blank input yields nil.
func NormalizeMerchant(desc string) *string {
	decomposed := norm.NFKD.String(desc)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return nil
	}
	return &out
}

// HeuristicCategory guesses a category from the raw description.
func HeuristicCategory(desc string) (*string, float64) {
	for _, p := range commonMerchants {
		if p.re.MatchString(desc) {
			category := p.category
			return &category, HeuristicConfidence
		}
	}
	return nil, 0
}

// DedupeHash identifies a bank line within an account. Midnight timestamps
// contribute their date only.
func DedupeHash(accountID string, postedAt time.Time, amount decimal.Decimal, merchant, desc *string) string {
	key := strings.Join([]string{
		accountID,
		hashDate(postedAt),
		amount.StringFixed(2),
		deref(merchant),
		deref(desc),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func hashDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
