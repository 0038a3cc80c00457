package extract

import (
	"github.com/dealerflow/salesagent/internal/agent/model"
)

// VehicleVocab maps a message keyword to the vehicle interest it implies.
type VehicleVocab struct {
	Keyword  string
	Interest model.VehicleInterest
}

// UsageVocab maps a keyword set to a usage type. Sets are evaluated in
// order; the first set with a match wins.
type UsageVocab struct {
	Usage    model.UsageType
	Keywords []string
}

// DocVocab maps a keyword set to a document type.
type DocVocab struct {
	Doc      model.DocType
	Keywords []string
}

// ScoreAlias maps a descriptive credit phrase to an assumed score. Aliases
// only apply when the message carries no explicit number.
type ScoreAlias struct {
	Phrase string
	Score  int
}

// Config holds the extraction vocabularies. The lists are tuned data, not
// design: swapping them adapts the extractor to another market or language
// without touching the matching logic.
type Config struct {
	Vehicles []VehicleVocab
	Usages   []UsageVocab
	Docs     []DocVocab

	ScoreMin     int
	ScoreMax     int
	ScoreAliases []ScoreAlias

	DownPaymentKeywords []string

	FirstBuyerPhrases    []string
	CreditHistoryPhrases []string
	TradeInPhrases       []string

	AgreementPhrases []string
	PurchaseKeywords []string
	LeaseKeywords    []string
}

// DefaultConfig returns the vocabulary for the Spanish/English bilingual
// dealership funnel.
func DefaultConfig() Config {
	return Config{
		Vehicles: []VehicleVocab{
			{Keyword: "corolla", Interest: model.VehicleInterest{Model: "Corolla", BodyType: "sedan", EstimatedPrice: 28000}},
			{Keyword: "camry", Interest: model.VehicleInterest{Model: "Camry", BodyType: "sedan", EstimatedPrice: 32000}},
			{Keyword: "rav4", Interest: model.VehicleInterest{Model: "RAV4", BodyType: "suv", EstimatedPrice: 35000}},
			{Keyword: "tacoma", Interest: model.VehicleInterest{Model: "Tacoma", BodyType: "pickup", EstimatedPrice: 38000}},
			{Keyword: "highlander", Interest: model.VehicleInterest{Model: "Highlander", BodyType: "suv", EstimatedPrice: 45000}},
			{Keyword: "civic", Interest: model.VehicleInterest{Model: "Civic", BodyType: "sedan", EstimatedPrice: 27000}},
			{Keyword: "accord", Interest: model.VehicleInterest{Model: "Accord", BodyType: "sedan", EstimatedPrice: 32000}},
			{Keyword: "cr-v", Interest: model.VehicleInterest{Model: "CR-V", BodyType: "suv", EstimatedPrice: 34000}},
			{Keyword: "crv", Interest: model.VehicleInterest{Model: "CR-V", BodyType: "suv", EstimatedPrice: 34000}},
		},
		Usages: []UsageVocab{
			{Usage: model.UsageRideshare, Keywords: []string{"uber", "lyft", "rideshare", "taxi"}},
			{Usage: model.UsageWork, Keywords: []string{"trabajo", "work", "construccion", "construcción", "chamba"}},
			{Usage: model.UsagePersonal, Keywords: []string{"familia", "hijos", "esposa", "personal", "diario"}},
		},
		Docs: []DocVocab{
			{Doc: model.DocSSN, Keywords: []string{"ssn", "social", "seguro"}},
			{Doc: model.DocITIN, Keywords: []string{"itin", "tax id"}},
			{Doc: model.DocPassport, Keywords: []string{"pasaporte", "passport"}},
		},
		ScoreMin: 550,
		ScoreMax: 850,
		ScoreAliases: []ScoreAlias{
			{Phrase: "excelente", Score: 750},
			{Phrase: "muy bueno", Score: 700},
			{Phrase: "regular", Score: 620},
		},
		DownPaymentKeywords: []string{
			"de inicial", "inicial", "de entrada", "entrada", "down", "dolares", "dólares", "dollars",
		},
		FirstBuyerPhrases: []string{
			"primer carro", "primera vez", "primer financ", "nunca he", "first time", "first car",
		},
		CreditHistoryPhrases: []string{
			"ya he financiado", "he financiado antes", "tengo credito", "tengo crédito", "have credit history",
		},
		TradeInPhrases: []string{
			"tengo carro", "doy mi carro", "trade", "cambiar mi",
		},
		AgreementPhrases: []string{
			"esta bien", "está bien", "me parece", "dale", "ok", "vamos con", "hagamos", "me cuadra", "hace sentido",
		},
		PurchaseKeywords: []string{"compra", "comprar", "purchase", "financiar"},
		LeaseKeywords:    []string{"lease", "leasing"},
	}
}
