package finance

// LTVBucket bands lease pricing risk by loan-to-value.
type LTVBucket string

const (
	LTV110 LTVBucket = "ltv110" // <= 110%
	LTV120 LTVBucket = "ltv120" // <= 120%
	LTV130 LTVBucket = "ltv130" // <= 130%
)

// TierFactors holds money factors per LTV bucket for one credit tier.
// A missing bucket means the combination is not offered; lookups fall
// back to the sheet's worst-case factor.
type TierFactors map[LTVBucket]float64

// VehicleModel is one row of the dealer's model database.
type VehicleModel struct {
	Code      string
	Name      string
	MSRP      float64
	Residuals map[int]float64 // term months -> residual percent
}

// Program is a promotional lease program covering a set of model codes.
// Program money factors take priority over the standard table.
type Program struct {
	Name         string
	ModelCodes   []string
	Bonus        float64
	MoneyFactors map[int]TierFactors        // credit tier -> factors
	Residuals    map[string]map[int]float64 // model code -> annual mileage -> percent (optional override, mileage already priced in)
}

// Fees are the dealer and state charges applied to every deal.
type Fees struct {
	AdminFee         float64
	DocFee           float64
	TagTitleLease    float64
	TagTitlePurchase float64
	LoanProcessing   float64
	SalesTaxRate     float64
}

// APRStep is one rung of the retail score-to-APR ladder. Steps are ordered
// by descending MinScore; the last step is the catch-all.
type APRStep struct {
	MinScore int
	APR      float64
}

// ModelAlias maps a loose keyword to a model code when no exact name
// matches (e.g. any "corolla" falls back to the base trim).
type ModelAlias struct {
	Keyword string
	Code    string
}

// RateSheet is the full pricing configuration for one program period.
// It is data, not design: the calculator works against any sheet with
// the same shape.
type RateSheet struct {
	ProgramPeriod string

	StandardMoneyFactors map[int]TierFactors
	FallbackMoneyFactor  float64

	Models  []VehicleModel
	Aliases []ModelAlias

	Programs []Program

	MileageOptions     []int
	MileageResidualAdj map[int]float64

	Fees      Fees
	APRLadder []APRStep

	// FirstBuyerAPR prices a first-time buyer whose score sits below the
	// established bands; 0 disables the tier.
	FirstBuyerAPR float64
}

// DefaultRateSheet returns the current program-period sheet. The numbers
// are one dealership's rate data and change monthly; only the shape is
// load-bearing.
func DefaultRateSheet() *RateSheet {
	return &RateSheet{
		ProgramPeriod: "January 6, 2026 - February 2, 2026",

		StandardMoneyFactors: map[int]TierFactors{
			1: {LTV110: 0.00296, LTV120: 0.00321, LTV130: 0.00361},
			2: {LTV110: 0.00316, LTV120: 0.00341, LTV130: 0.00409},
			3: {LTV110: 0.00351, LTV120: 0.00396, LTV130: 0.00456},
			4: {LTV110: 0.00426, LTV120: 0.00496},
		},
		FallbackMoneyFactor: 0.00426,

		Models: []VehicleModel{
			{Code: "1852", Name: "COROLLA LE", MSRP: 25500, Residuals: map[int]float64{24: 68, 36: 60, 39: 58, 48: 52, 60: 46}},
			{Code: "1864", Name: "COROLLA SE", MSRP: 28100, Residuals: map[int]float64{24: 66, 36: 58, 39: 56, 48: 51, 60: 44}},
			{Code: "4430", Name: "RAV4 LE FWD", MSRP: 30800, Residuals: map[int]float64{24: 70, 36: 62, 39: 60, 48: 53, 60: 47}},
			{Code: "4440", Name: "RAV4 XLE FWD", MSRP: 32300, Residuals: map[int]float64{24: 68, 36: 60, 39: 58, 48: 51, 60: 45}},
			{Code: "2559", Name: "CAMRY HYBRID LE", MSRP: 32000, Residuals: map[int]float64{24: 68, 36: 59, 39: 57, 48: 47, 60: 38}},
			{Code: "2561", Name: "CAMRY HYBRID SE", MSRP: 34100, Residuals: map[int]float64{24: 67, 36: 58, 39: 56, 48: 47, 60: 38}},
			// residuals come from the 2026 bZ program table
			{Code: "2870", Name: "BZ XLE FWD", MSRP: 38520},
		},
		Aliases: []ModelAlias{
			{Keyword: "COROLLA", Code: "1852"},
			{Keyword: "CAMRY", Code: "2559"},
			{Keyword: "RAV4", Code: "4430"},
			{Keyword: "BZ", Code: "2870"},
		},

		Programs: []Program{
			{
				Name:       "2026 Corolla",
				ModelCodes: []string{"1852", "1864", "1866"},
				MoneyFactors: map[int]TierFactors{
					1: {LTV110: 0.00259, LTV120: 0.00284, LTV130: 0.00324},
					2: {LTV110: 0.00279, LTV120: 0.00304, LTV130: 0.00372},
					3: {LTV110: 0.00314, LTV120: 0.00359, LTV130: 0.00419},
					4: {LTV110: 0.00389, LTV120: 0.00459},
				},
			},
			{
				Name:       "2026 Camry Hybrid",
				ModelCodes: []string{"2551", "2552", "2553", "2555", "2556", "2557", "2558", "2559", "2560", "2561"},
				MoneyFactors: map[int]TierFactors{
					1: {LTV110: 0.00268, LTV120: 0.00293, LTV130: 0.00333},
					2: {LTV110: 0.00288, LTV120: 0.00313, LTV130: 0.00381},
					3: {LTV110: 0.00323, LTV120: 0.00368, LTV130: 0.00428},
					4: {LTV110: 0.00398, LTV120: 0.00468},
				},
			},
			{
				Name:       "2026 RAV4",
				ModelCodes: []string{"4430", "4432", "4440", "4442", "4450", "4452", "4477", "4478"},
				MoneyFactors: map[int]TierFactors{
					1: {LTV110: 0.00263, LTV120: 0.00288, LTV130: 0.00328},
					2: {LTV110: 0.00283, LTV120: 0.00308, LTV130: 0.00376},
					3: {LTV110: 0.00318, LTV120: 0.00363, LTV130: 0.00423},
					4: {LTV110: 0.00393, LTV120: 0.00463},
				},
			},
			{
				Name:       "2026 bZ",
				ModelCodes: []string{"2870", "2872", "2873", "2880", "2882"},
				Bonus:      3500,
				MoneyFactors: map[int]TierFactors{
					1: {LTV110: 0.00007, LTV120: 0.00032, LTV130: 0.00072},
					2: {LTV110: 0.00027, LTV120: 0.00052, LTV130: 0.00120},
					3: {LTV110: 0.00062, LTV120: 0.00107, LTV130: 0.00167},
					4: {LTV110: 0.00137, LTV120: 0.00207},
				},
				Residuals: map[string]map[int]float64{
					"2870": {12000: 54, 15000: 52, 18000: 50},
					"2872": {12000: 54, 15000: 52, 18000: 50},
					"2873": {12000: 51, 15000: 49, 18000: 47},
					"2880": {12000: 51, 15000: 49, 18000: 47},
					"2882": {12000: 51, 15000: 49, 18000: 47},
				},
			},
		},

		MileageOptions: []int{12000, 15000, 18000},
		MileageResidualAdj: map[int]float64{
			12000: 2,
			15000: 0,
			18000: -2,
		},

		Fees: Fees{
			AdminFee:         695,
			DocFee:           799,
			TagTitleLease:    395,
			TagTitlePurchase: 495,
			LoanProcessing:   399,
			SalesTaxRate:     0.06,
		},

		APRLadder: []APRStep{
			{MinScore: 740, APR: 5.99},
			{MinScore: 650, APR: 6.99},
			{MinScore: 0, APR: 12.99},
		},
		FirstBuyerAPR: 12.99,
	}
}
