package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"$5.00", 500},
		{"5", 500},
		{"5.5", 550},
		{"$1,250.75", 125075},
		{" $0.99 ", 99},
		{"-3.00", -300},
		{".50", 50},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMoney(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseMoney_Rejects(t *testing.T) {
	for _, in := range []string{"", "$", "abc", "5.123", "5.", "$-5", "1.2.3", "5.+1", "+5", "$+5.00", "--5", "5.-1", "5 .00", "0x10"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseMoney(in)
			require.Error(t, err)
		})
	}
}

func TestMoney_String(t *testing.T) {
	req := require.New(t)
	req.Equal("$50.00", Money(5000).String())
	req.Equal("$1,000.05", Money(100005).String())
	req.Equal("-$0.30", Money(-30).String())
	req.Equal("$0.00", Money(0).String())
}

func TestMoney_Mul(t *testing.T) {
	req := require.New(t)

	total, err := Money(500).Mul(10)
	req.NoError(err)
	req.Equal(Money(5000), total)

	_, err = Money(math.MaxInt64 / 2).Mul(3)
	req.ErrorIs(err, ErrMoneyOverflow)
}
