package entity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Money is a currency amount in cents.
type Money int64

var (
	ErrInvalidMoney  = errors.New("invalid money amount")
	ErrMoneyOverflow = errors.New("money amount overflows")
)

// ParseMoney accepts display strings such as "$1,250.50", "5", "5.5" or
// "-3.00". More than two fractional digits is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidMoney
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, ErrInvalidMoney
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, ErrInvalidMoney
	}
	for len(frac) < 2 {
		frac += "0"
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrMoneyOverflow
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	if dollars > (math.MaxInt64-cents)/100 {
		return 0, ErrMoneyOverflow
	}

	amount := Money(dollars*100 + cents)
	if negative {
		amount = -amount
	}
	return amount, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Mul multiplies by a share quantity, reporting overflow.
func (m Money) Mul(quantity int64) (Money, error) {
	if quantity == 0 || m == 0 {
		return 0, nil
	}
	result := int64(m) * quantity
	if result/quantity != int64(m) {
		return 0, ErrMoneyOverflow
	}
	return Money(result), nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(v/100), v%100)
}
