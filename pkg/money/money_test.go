package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

func TestFromDecimal(t *testing.T) {
	amount, err := FromDecimal(decimal.RequireFromString("12.50"), enums.CurrencyGHS)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), amount.Minor)
	assert.Equal(t, "12.50 GHS", amount.String())

	_, err = FromDecimal(decimal.RequireFromString("0.005"), enums.CurrencyGHS)
	assert.Error(t, err)
}

func TestAddRejectsMixedCurrencies(t *testing.T) {
	ghs := FromMinor(100, enums.CurrencyGHS)
	ngn := FromMinor(100, enums.CurrencyNGN)

	sum, err := ghs.Add(FromMinor(250, enums.CurrencyGHS))
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Minor)

	_, err = ghs.Add(ngn)
	assert.Error(t, err)
}

func TestEqualAndSign(t *testing.T) {
	a := FromMinor(500, enums.CurrencyGHS)
	assert.True(t, a.Equal(FromMinor(500, enums.CurrencyGHS)))
	assert.False(t, a.Equal(FromMinor(500, enums.CurrencyNGN)))
	assert.True(t, a.IsPositive())
	assert.False(t, FromMinor(0, enums.CurrencyGHS).IsPositive())

	assert.Equal(t, int64(1500), a.MulInt(3).Minor)
}
