// Package features derives the classifier's input vector from the sparse facts
// an applicant supplies. Derivation is pure and deterministic.
package features

import (
	"math"
	"strings"

	dErrors "fintrust/pkg/domain-errors"
)

// Input is the loan request plus optional profile facts. Nil, zero and blank
// facts take the documented defaults.
type Input struct {
	LoanAmount float64  `json:"loan_amount"`
	Purpose    string   `json:"purpose"`
	Age        *int     `json:"age,omitempty"`
	Gender     *string  `json:"gender,omitempty"`
	Income     *float64 `json:"income,omitempty"`
	Livelihood *string  `json:"livelihood,omitempty"`
}

// Derive maps an input to a fully populated Vector. It fails only on invalid
// numeric input: non-positive or non-finite loan amounts, negative facts.
func Derive(in Input) (Vector, error) {
	if math.IsNaN(in.LoanAmount) || math.IsInf(in.LoanAmount, 0) || in.LoanAmount <= 0 {
		return Vector{}, dErrors.New(dErrors.CodeInvalidInput, "loan_amount must be a positive number")
	}

	income := DefaultIncome
	if in.Income != nil {
		if math.IsNaN(*in.Income) || math.IsInf(*in.Income, 0) || *in.Income < 0 {
			return Vector{}, dErrors.New(dErrors.CodeInvalidInput, "income must be a non-negative number")
		}
		if *in.Income > 0 {
			income = *in.Income
		}
	}

	age := DefaultAge
	if in.Age != nil {
		if *in.Age < 0 {
			return Vector{}, dErrors.New(dErrors.CodeInvalidInput, "age must be non-negative")
		}
		if *in.Age > 0 {
			age = *in.Age
		}
	}

	gender := textOr(in.Gender, DefaultGender)
	livelihood := textOr(in.Livelihood, DefaultLivelihood)

	duration := Duration(in.LoanAmount, income)
	years := float64(age)

	existingCredits := 1
	if age >= 30 {
		existingCredits = 2
	}

	return Vector{
		Status:                pick(income, checkingStatusBands, checkingStatusHigh),
		Duration:              duration,
		CreditHistory:         pickFloor(years, creditHistoryFloors, creditHistoryCritical),
		Purpose:               lookup(purposeCodes, in.Purpose, purposeOther),
		CreditAmount:          in.LoanAmount,
		Savings:               pick(income, savingsBands, savingsHigh),
		Employment:            pick(years, employmentBands, employmentSevenPlus),
		InstallmentRate:       InstallmentRate(in.LoanAmount, duration, income),
		PersonalStatusSex:     lookup(personalStatusCodes, gender, personalStatusMale),
		OtherDebtors:          otherDebtorsNone,
		ResidenceSince:        pick(years, residenceBands, residenceMax),
		Property:              pickFloor(income, propertyFloors, propertyNone),
		Age:                   age,
		OtherInstallmentPlans: otherInstallmentPlanNone,
		Housing:               pickFloor(income, housingFloors, housingFree),
		ExistingCredits:       existingCredits,
		Job:                   lookup(jobCodes, livelihood, jobSkilled),
		PeopleLiable:          peopleLiable,
		Telephone:             telephoneRegistered,
		ForeignWorker:         foreignWorkerNo,
	}, nil
}

// Duration is the repayment term in months: the loan over the affordable
// monthly share of income, rounded up and clamped to [6, 48].
func Duration(loanAmount, income float64) int {
	months := math.Ceil(loanAmount / (income * affordableIncomeShare))
	if math.IsNaN(months) || months < minDurationMonths {
		return minDurationMonths
	}
	if months > maxDurationMonths {
		return maxDurationMonths
	}
	return int(months)
}

// InstallmentRate bands the monthly payment as a share of income into 1..4.
func InstallmentRate(loanAmount float64, duration int, income float64) int {
	ratio := (loanAmount / float64(duration)) / income
	return pick(ratio, installmentRateBands, installmentRateMax)
}

func textOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}
