package conversation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
)

// amountRegex matches "12", "12.50", "12,50" and "$12.50". The integer part
// is capped so the value fits the store's DECIMAL(14,2).
var amountRegex = regexp.MustCompile(`^\$?\s*(\d{1,12}(?:[.,]\d{1,2})?)$`)

// ParseAmount parses a positive total entered by the initiator.
func ParseAmount(input string) (decimal.Decimal, error) {
	match := amountRegex.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return decimal.Zero, apperr.ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", "."))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, apperr.ErrInvalidAmount
	}
	return amount, nil
}
