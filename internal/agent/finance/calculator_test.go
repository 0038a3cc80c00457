package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditTierBoundaries(t *testing.T) {
	assert.Equal(t, 1, CreditTier(720))
	assert.Equal(t, 1, CreditTier(810))
	assert.Equal(t, 2, CreditTier(719))
	assert.Equal(t, 2, CreditTier(680))
	assert.Equal(t, 3, CreditTier(679))
	assert.Equal(t, 3, CreditTier(650))
	assert.Equal(t, 4, CreditTier(649))
	assert.Equal(t, 4, CreditTier(0))
}

func TestBucketLTV(t *testing.T) {
	assert.Equal(t, LTV110, BucketLTV(90))
	assert.Equal(t, LTV110, BucketLTV(110))
	assert.Equal(t, LTV120, BucketLTV(110.01))
	assert.Equal(t, LTV130, BucketLTV(130))
	assert.Equal(t, LTVBucket(""), BucketLTV(131))
}

func TestFindModelByAlias(t *testing.T) {
	c := NewCalculator(nil)

	m, err := c.findModel("quiero el corolla")
	require.NoError(t, err)
	assert.Equal(t, "1852", m.Code)

	m, err = c.findModel("RAV4 XLE FWD")
	require.NoError(t, err)
	assert.Equal(t, "4440", m.Code)

	_, err = c.findModel("cybertruck")
	assert.ErrorIs(t, err, ErrModelNotFound)

	_, err = c.findModel("")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestQuoteLeaseCorolla(t *testing.T) {
	c := NewCalculator(nil)

	q, err := c.QuoteLease("corolla le", 720, 3000, 39, 12000)
	require.NoError(t, err)

	assert.Equal(t, "COROLLA LE", q.Model)
	assert.Equal(t, 1, q.CreditTier)
	// program money factor beats the standard table for covered models
	assert.Equal(t, 0.00259, q.MoneyFactor)
	// 39mo residual 58% + 2pt low-mileage adjustment
	assert.Equal(t, float64(15300), q.ResidualValue)
	assert.Equal(t, float64(320), q.MonthlyPayment)
	assert.Equal(t, float64(4514), q.DueAtSigning)
}

func TestQuoteLeaseDeterministic(t *testing.T) {
	c := NewCalculator(nil)

	a, err := c.QuoteLease("camry", 695, 2000, 36, 15000)
	require.NoError(t, err)
	b, err := c.QuoteLease("camry", 695, 2000, 36, 15000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQuoteLeaseMileageAdjustment(t *testing.T) {
	c := NewCalculator(nil)

	low, err := c.QuoteLease("rav4 le fwd", 700, 2000, 36, 12000)
	require.NoError(t, err)
	high, err := c.QuoteLease("rav4 le fwd", 700, 2000, 36, 18000)
	require.NoError(t, err)

	// more miles, lower residual, higher payment
	assert.Greater(t, low.ResidualValue, high.ResidualValue)
	assert.Less(t, low.MonthlyPayment, high.MonthlyPayment)
}

func TestQuoteLeaseWorseTierCostsMore(t *testing.T) {
	c := NewCalculator(nil)

	good, err := c.QuoteLease("corolla le", 750, 2000, 39, 12000)
	require.NoError(t, err)
	bad, err := c.QuoteLease("corolla le", 600, 2000, 39, 12000)
	require.NoError(t, err)

	assert.Greater(t, bad.MoneyFactor, good.MoneyFactor)
	assert.Greater(t, bad.MonthlyPayment, good.MonthlyPayment)
}

func TestQuoteFinanceCorolla(t *testing.T) {
	c := NewCalculator(nil)

	q, err := c.QuoteFinance("corolla le", 740, 5000, 60, false)
	require.NoError(t, err)

	// 25500 + 1693 fees + 1530 tax
	assert.Equal(t, float64(28723), q.PriceWithTaxFees)
	assert.Equal(t, float64(23723), q.AmountFinanced)
	assert.Equal(t, 5.99, q.APR)
	assert.InDelta(t, 459, q.MonthlyPayment, 1)
	assert.Equal(t, float64(5000), q.DueAtSigning)
}

func TestQuoteFinanceAPRLadder(t *testing.T) {
	c := NewCalculator(nil)

	cases := []struct {
		score int
		apr   float64
	}{
		{760, 5.99},
		{740, 5.99},
		{700, 6.99},
		{650, 6.99},
		{600, 12.99},
	}
	for _, tc := range cases {
		q, err := c.QuoteFinance("camry", tc.score, 3000, 60, false)
		require.NoError(t, err)
		assert.Equal(t, tc.apr, q.APR, "score %d", tc.score)
	}
}

func TestQuoteFinanceCashDeal(t *testing.T) {
	c := NewCalculator(nil)

	// down payment exceeds price plus tax and fees
	q, err := c.QuoteFinance("corolla le", 700, 50000, 60, false)
	require.NoError(t, err)

	assert.Equal(t, float64(0), q.AmountFinanced)
	assert.Equal(t, float64(0), q.MonthlyPayment)
	assert.Equal(t, float64(0), q.APR)
	assert.Equal(t, q.PriceWithTaxFees, q.DueAtSigning)
}

func TestQuoteFinanceUnknownModel(t *testing.T) {
	c := NewCalculator(nil)

	_, err := c.QuoteFinance("f-150", 700, 3000, 60, false)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestQuoteFinanceFirstBuyerRate(t *testing.T) {
	c := NewCalculator(nil)

	// no established band yet: first-buyer rate wins over the ladder
	fb, err := c.QuoteFinance("camry", 660, 3000, 60, true)
	require.NoError(t, err)
	assert.Equal(t, 12.99, fb.APR)

	same, err := c.QuoteFinance("camry", 660, 3000, 60, false)
	require.NoError(t, err)
	assert.Equal(t, 6.99, same.APR)

	// from 680 up the ladder applies even for a first-time buyer
	est, err := c.QuoteFinance("camry", 700, 3000, 60, true)
	require.NoError(t, err)
	assert.Equal(t, 6.99, est.APR)
}

func TestQuoteLeaseProgramResidualByMileage(t *testing.T) {
	c := NewCalculator(nil)

	low, err := c.QuoteLease("bz xle", 720, 3000, 39, 12000)
	require.NoError(t, err)
	high, err := c.QuoteLease("bz xle", 720, 3000, 39, 18000)
	require.NoError(t, err)

	// the program table already prices mileage: 54% vs 50% of MSRP,
	// with no standard adjustment stacked on top
	assert.Equal(t, float64(20801), low.ResidualValue)
	assert.Equal(t, float64(19260), high.ResidualValue)
	assert.Less(t, low.MonthlyPayment, high.MonthlyPayment)
}

func TestBuildScenarios(t *testing.T) {
	c := NewCalculator(nil)

	s, err := c.BuildScenarios("corolla", 680, true, 3000)
	require.NoError(t, err)

	require.NotNil(t, s.Purchase)
	require.NotNil(t, s.Lease)
	assert.Equal(t, 2, s.CreditTier)
	assert.True(t, s.FirstTimeBuyer)
	assert.NotEmpty(t, s.Recommendation)
}

func TestBuildScenariosFirstBuyerPurchaseRate(t *testing.T) {
	c := NewCalculator(nil)

	s, err := c.BuildScenarios("corolla", 640, true, 3000)
	require.NoError(t, err)

	assert.Equal(t, 12.99, s.Purchase.APR)
	assert.Contains(t, s.Recommendation, "primer comprador")
}
