// Package finance is the deterministic pricing core. Every function here
// is pure: no clock, no randomness, no I/O. Identical inputs produce
// bit-identical quotes, which is what lets the engine promise it never
// gives two different numbers for the same situation.
package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrModelNotFound reports that no vehicle in the rate sheet matches the
// requested name. Callers relay it as a result, never as a crash.
var ErrModelNotFound = errors.New("model not found")

// LeaseQuote is the output of QuoteLease.
type LeaseQuote struct {
	Model          string  `json:"model"`
	MSRP           float64 `json:"msrp"`
	TermMonths     int     `json:"term_months"`
	AnnualMileage  int     `json:"annual_mileage"`
	CreditTier     int     `json:"credit_tier"`
	MonthlyPayment float64 `json:"monthly_payment"`
	DueAtSigning   float64 `json:"due_at_signing"`
	ResidualValue  float64 `json:"residual_value"`
	MoneyFactor    float64 `json:"money_factor"`
}

// FinanceQuote is the output of QuoteFinance.
type FinanceQuote struct {
	Model            string  `json:"model"`
	PriceWithTaxFees float64 `json:"price_with_tax_fees"`
	AmountFinanced   float64 `json:"amount_financed"`
	APR              float64 `json:"apr"`
	TermMonths       int     `json:"term_months"`
	CreditTier       int     `json:"credit_tier"`
	MonthlyPayment   float64 `json:"monthly_payment"`
	DueAtSigning     float64 `json:"cash_due_at_signing"`
}

// Scenarios pairs a purchase and a lease quote for the same client so the
// offer context can show both paths side by side.
type Scenarios struct {
	Purchase       *FinanceQuote `json:"purchase"`
	Lease          *LeaseQuote   `json:"lease,omitempty"`
	CreditTier     int           `json:"credit_tier"`
	FirstTimeBuyer bool          `json:"first_time_buyer"`
	Recommendation string        `json:"recommendation"`
}

type Calculator struct {
	sheet *RateSheet
}

func NewCalculator(sheet *RateSheet) *Calculator {
	if sheet == nil {
		sheet = DefaultRateSheet()
	}
	return &Calculator{sheet: sheet}
}

// CreditTier buckets a score into the sheet's four tiers. Scores below
// the tier-4 floor still price as tier 4; the gate upstream guarantees a
// score exists before any quote is requested.
func CreditTier(score int) int {
	switch {
	case score >= 720:
		return 1
	case score >= 680:
		return 2
	case score >= 650:
		return 3
	default:
		return 4
	}
}

// BucketLTV bands a loan-to-value percentage. Values above 130 return ""
// and price at the sheet's worst-case money factor.
func BucketLTV(ltv float64) LTVBucket {
	switch {
	case ltv <= 110:
		return LTV110
	case ltv <= 120:
		return LTV120
	case ltv <= 130:
		return LTV130
	default:
		return ""
	}
}

// findModel resolves a free-text vehicle name against the sheet: exact
// name containment first, loose alias keywords second.
func (c *Calculator) findModel(name string) (*VehicleModel, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return nil, fmt.Errorf("%w: empty model name", ErrModelNotFound)
	}

	for i := range c.sheet.Models {
		m := &c.sheet.Models[i]
		if strings.Contains(upper, m.Name) || strings.Contains(m.Name, upper) {
			return m, nil
		}
	}
	for _, alias := range c.sheet.Aliases {
		if strings.Contains(upper, alias.Keyword) {
			for i := range c.sheet.Models {
				if c.sheet.Models[i].Code == alias.Code {
					return &c.sheet.Models[i], nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

func (c *Calculator) findProgram(code string) *Program {
	for i := range c.sheet.Programs {
		p := &c.sheet.Programs[i]
		for _, mc := range p.ModelCodes {
			if mc == code {
				return p
			}
		}
	}
	return nil
}

// moneyFactor looks up the rate for (model, tier, LTV). A promotional
// program covering the model takes priority over the standard table; any
// missing combination falls back to the sheet's worst-case factor so the
// lookup is total.
func (c *Calculator) moneyFactor(code string, tier int, ltv float64) float64 {
	bucket := BucketLTV(ltv)
	if bucket == "" {
		return c.sheet.FallbackMoneyFactor
	}

	if prog := c.findProgram(code); prog != nil {
		if factors, ok := prog.MoneyFactors[tier]; ok {
			if mf, ok := factors[bucket]; ok {
				return mf
			}
		}
	}
	if factors, ok := c.sheet.StandardMoneyFactors[tier]; ok {
		if mf, ok := factors[bucket]; ok {
			return mf
		}
	}
	return c.sheet.FallbackMoneyFactor
}

// residualPercent resolves the residual for (model, term, mileage). A
// promotional program may carry its own residual table keyed by annual
// mileage; those values already price the mileage in, so the standard
// adjustment never stacks on top. Otherwise the model's term table
// applies: unknown terms price at the 36-month row, a fully unknown
// model/term pair uses a 50% floor.
func (c *Calculator) residualPercent(m *VehicleModel, term, mileage int) float64 {
	if prog := c.findProgram(m.Code); prog != nil && prog.Residuals != nil {
		if byMileage, ok := prog.Residuals[m.Code]; ok {
			if pct, ok := byMileage[mileage]; ok {
				return pct
			}
			if pct, ok := byMileage[15000]; ok {
				return pct
			}
		}
	}

	pct, ok := m.Residuals[term]
	if !ok {
		if pct, ok = m.Residuals[36]; !ok {
			pct = 50
		}
	}
	return pct + c.sheet.MileageResidualAdj[mileage]
}

// QuoteLease prices a lease for the named model. term is typically 36 or
// 39 months; mileage must be one of the sheet's annual options (anything
// else prices at the standard 15k row, i.e. no adjustment).
func (c *Calculator) QuoteLease(modelName string, creditScore int, downPayment float64, term, mileage int) (*LeaseQuote, error) {
	m, err := c.findModel(modelName)
	if err != nil {
		return nil, err
	}
	if term <= 0 {
		term = 39
	}
	if mileage == 0 {
		mileage = 12000
	}

	price := m.MSRP
	tier := CreditTier(creditScore)
	fees := c.sheet.Fees

	grossCapCost := price + fees.AdminFee
	adjustedCapCost := grossCapCost - downPayment
	ltv := adjustedCapCost / price * 100

	residualValue := math.Round(price * c.residualPercent(m, term, mileage) / 100)
	mf := c.moneyFactor(m.Code, tier, ltv)

	depreciation := (adjustedCapCost - residualValue) / float64(term)
	financeCharge := (adjustedCapCost + residualValue) * mf
	basePayment := depreciation + financeCharge
	totalPayment := basePayment * (1 + fees.SalesTaxRate)

	dueAtSigning := downPayment + fees.DocFee + fees.TagTitleLease + totalPayment

	return &LeaseQuote{
		Model:          m.Name,
		MSRP:           price,
		TermMonths:     term,
		AnnualMileage:  mileage,
		CreditTier:     tier,
		MonthlyPayment: math.Round(totalPayment),
		DueAtSigning:   math.Round(dueAtSigning),
		ResidualValue:  residualValue,
		MoneyFactor:    mf,
	}, nil
}

// QuoteFinance prices a retail purchase for the named model using the
// standard amortization formula. A down payment covering the full price
// yields a zero-financing quote rather than a division error. firstBuyer
// routes sub-680 scores to the sheet's first-buyer rate.
func (c *Calculator) QuoteFinance(modelName string, creditScore int, downPayment float64, term int, firstBuyer bool) (*FinanceQuote, error) {
	m, err := c.findModel(modelName)
	if err != nil {
		return nil, err
	}
	if term <= 0 {
		term = 60
	}

	price := m.MSRP
	tier := CreditTier(creditScore)
	fees := c.sheet.Fees

	flatFees := fees.DocFee + fees.TagTitlePurchase + fees.LoanProcessing
	totalPrice := price + flatFees + price*fees.SalesTaxRate
	amountFinanced := totalPrice - downPayment

	if amountFinanced <= 0 {
		// cash deal: nothing financed, nothing amortized
		return &FinanceQuote{
			Model:            m.Name,
			PriceWithTaxFees: math.Round(totalPrice),
			AmountFinanced:   0,
			APR:              0,
			TermMonths:       term,
			CreditTier:       tier,
			MonthlyPayment:   0,
			DueAtSigning:     math.Round(totalPrice),
		}, nil
	}

	apr := c.aprFor(creditScore, firstBuyer)
	monthlyRate := apr / 100 / 12

	var payment float64
	if monthlyRate == 0 {
		payment = amountFinanced / float64(term)
	} else {
		pow := math.Pow(1+monthlyRate, float64(term))
		payment = amountFinanced * (monthlyRate * pow) / (pow - 1)
	}

	return &FinanceQuote{
		Model:            m.Name,
		PriceWithTaxFees: math.Round(totalPrice),
		AmountFinanced:   math.Round(amountFinanced),
		APR:              apr,
		TermMonths:       term,
		CreditTier:       tier,
		MonthlyPayment:   math.Round(payment),
		DueAtSigning:     math.Round(downPayment),
	}, nil
}

// aprFor walks the retail ladder. A first-time buyer without an
// established score band prices at the dedicated first-buyer rate; from
// 680 up the ladder wins regardless.
func (c *Calculator) aprFor(score int, firstBuyer bool) float64 {
	if firstBuyer && score < 680 && c.sheet.FirstBuyerAPR > 0 {
		return c.sheet.FirstBuyerAPR
	}
	for _, step := range c.sheet.APRLadder {
		if score >= step.MinScore {
			return step.APR
		}
	}
	if n := len(c.sheet.APRLadder); n > 0 {
		return c.sheet.APRLadder[n-1].APR
	}
	return 12.99
}

// BuildScenarios prices the purchase and lease paths side by side and
// attaches a recommendation line for the offer context.
func (c *Calculator) BuildScenarios(modelName string, creditScore int, firstTimeBuyer bool, downPayment float64) (*Scenarios, error) {
	purchase, err := c.QuoteFinance(modelName, creditScore, downPayment, 60, firstTimeBuyer)
	if err != nil {
		return nil, err
	}

	// lease pricing is best-effort: a model with no residual row still
	// gets a purchase scenario
	lease, err := c.QuoteLease(modelName, creditScore, downPayment, 39, 12000)
	if err != nil && !errors.Is(err, ErrModelNotFound) {
		return nil, err
	}

	s := &Scenarios{
		Purchase:       purchase,
		Lease:          lease,
		CreditTier:     purchase.CreditTier,
		FirstTimeBuyer: firstTimeBuyer,
	}
	s.Recommendation = recommend(s)
	return s, nil
}

func recommend(s *Scenarios) string {
	p := s.Purchase
	l := s.Lease

	if s.FirstTimeBuyer {
		if l != nil && l.MonthlyPayment < p.MonthlyPayment {
			return fmt.Sprintf("Para primer comprador, el lease a $%.0f/mes te conviene más. Construyes crédito y quedas cómodo.", l.MonthlyPayment)
		}
		return fmt.Sprintf("Para primer comprador con buena inicial, la compra a $%.0f/mes puede funcionar bien.", p.MonthlyPayment)
	}

	switch s.CreditTier {
	case 1:
		if l != nil && l.MonthlyPayment < p.MonthlyPayment {
			return fmt.Sprintf("Con tu crédito tienes buen rate. Lease a $%.0f/mes o compra a $%.0f/mes, depende si quieres tenerlo tuyo.", l.MonthlyPayment, p.MonthlyPayment)
		}
		return fmt.Sprintf("Con tu crédito el rate está bueno. Compra a $%.0f/mes es sólida opción.", p.MonthlyPayment)
	case 3, 4:
		return fmt.Sprintf("Con el score actual, el pago queda en $%.0f/mes. Con más inicial lo bajamos.", p.MonthlyPayment)
	default:
		return fmt.Sprintf("Pago estimado: $%.0f/mes con $%.0f de entrada.", p.MonthlyPayment, p.DueAtSigning)
	}
}
