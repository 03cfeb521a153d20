package features

import "strings"

// Defaults applied when a profile fact is missing.
const (
	DefaultIncome     = 3000.0
	DefaultAge        = 30
	DefaultGender     = "male"
	DefaultLivelihood = "skilled"
)

// Fixed codes for facts the applicant is never asked about.
const (
	otherDebtorsNone         = "A101"
	otherInstallmentPlanNone = "A143"
	telephoneRegistered      = "A192"
	foreignWorkerNo          = "A202"
	peopleLiable             = 1
)

const (
	minDurationMonths = 6
	maxDurationMonths = 48
	// Share of monthly income assumed available for repayment.
	affordableIncomeShare = 0.3
)

// band maps values strictly below `below` to code. Tables are ordered ascending.
type band[T any] struct {
	below float64
	value T
}

func pick[T any](x float64, bands []band[T], otherwise T) T {
	for _, b := range bands {
		if x < b.below {
			return b.value
		}
	}
	return otherwise
}

// floor maps values at or above `atLeast` to value. Tables are ordered descending.
type floor[T any] struct {
	atLeast float64
	value   T
}

func pickFloor[T any](x float64, floors []floor[T], otherwise T) T {
	for _, f := range floors {
		if x >= f.atLeast {
			return f.value
		}
	}
	return otherwise
}

// Checking-account status from income: LOW, MEDIUM, HIGH.
var checkingStatusBands = []band[string]{
	{2000, "A11"},
	{5000, "A12"},
}

const checkingStatusHigh = "A13"

// Credit history from age: GOOD, FAIR, else CRITICAL.
var creditHistoryFloors = []floor[string]{
	{40, "A31"},
	{25, "A32"},
}

const creditHistoryCritical = "A34"

// Savings from income: VERY_LOW, LOW, MEDIUM, else HIGH.
var savingsBands = []band[string]{
	{2000, "A61"},
	{4000, "A62"},
	{7000, "A63"},
}

const savingsHigh = "A64"

// Employment tenure from age: <1yr, 1-4yr, 4-7yr, else 7+yr.
var employmentBands = []band[string]{
	{22, "A72"},
	{26, "A73"},
	{32, "A74"},
}

const employmentSevenPlus = "A75"

// Installment rate from the monthly-payment-to-income ratio.
var installmentRateBands = []band[int]{
	{0.15, 1},
	{0.25, 2},
	{0.35, 3},
}

const installmentRateMax = 4

// Years at current residence from age.
var residenceBands = []band[int]{
	{25, 1},
	{35, 2},
	{45, 3},
}

const residenceMax = 4

// Property from income: real estate, savings agreement, car, else none.
var propertyFloors = []floor[string]{
	{8000, "A121"},
	{5000, "A122"},
	{3000, "A123"},
}

const propertyNone = "A124"

// Housing from income: own, rent, else for free.
var housingFloors = []floor[string]{
	{6000, "A152"},
	{3000, "A151"},
}

const housingFree = "A153"

// Purpose labels, matched case-insensitively. Unknown labels collapse to purposeOther.
var purposeCodes = map[string]string{
	"business":           "A49",
	"agriculture":        "A49",
	"farming":            "A49",
	"livelihood":         "A49",
	"education":          "A46",
	"car":                "A40",
	"home improvement":   "A42",
	"personal":           "A410",
	"medical":            "A410",
	"debt consolidation": "A410",
}

const purposeOther = "A410"

// Job codes from stated livelihood, matched case-insensitively.
var jobCodes = map[string]string{
	"unemployed":          "A171",
	"unskilled":           "A172",
	"vendor":              "A172",
	"laborer":             "A172",
	"skilled":             "A173",
	"farmer":              "A173",
	"fisherman":           "A173",
	"teacher":             "A173",
	"government employee": "A173",
	"professional":        "A174",
	"self-employed":       "A174",
	"business owner":      "A174",
}

const jobSkilled = "A173"

// Personal status / sex. Anything unrecognized takes the male code.
var personalStatusCodes = map[string]string{
	"male":   "A93",
	"m":      "A93",
	"female": "A92",
	"f":      "A92",
}

const personalStatusMale = "A93"

func lookup(table map[string]string, label, otherwise string) string {
	if code, ok := table[strings.ToLower(strings.TrimSpace(label))]; ok {
		return code
	}
	return otherwise
}
