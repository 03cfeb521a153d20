package features

// Vector is the complete model input. Every field is always populated.
type Vector struct {
	Status                string  `json:"status" yaml:"status"`
	Duration              int     `json:"duration" yaml:"duration"`
	CreditHistory         string  `json:"credit_history" yaml:"credit_history"`
	Purpose               string  `json:"purpose" yaml:"purpose"`
	CreditAmount          float64 `json:"credit_amount" yaml:"credit_amount"`
	Savings               string  `json:"savings" yaml:"savings"`
	Employment            string  `json:"employment" yaml:"employment"`
	InstallmentRate       int     `json:"installment_rate" yaml:"installment_rate"`
	PersonalStatusSex     string  `json:"personal_status_sex" yaml:"personal_status_sex"`
	OtherDebtors          string  `json:"other_debtors" yaml:"other_debtors"`
	ResidenceSince        int     `json:"residence_since" yaml:"residence_since"`
	Property              string  `json:"property" yaml:"property"`
	Age                   int     `json:"age" yaml:"age"`
	OtherInstallmentPlans string  `json:"other_installment_plans" yaml:"other_installment_plans"`
	Housing               string  `json:"housing" yaml:"housing"`
	ExistingCredits       int     `json:"existing_credits" yaml:"existing_credits"`
	Job                   string  `json:"job" yaml:"job"`
	PeopleLiable          int     `json:"people_liable" yaml:"people_liable"`
	Telephone             string  `json:"telephone" yaml:"telephone"`
	ForeignWorker         string  `json:"foreign_worker" yaml:"foreign_worker"`
}

// Column is one named model input: a categorical code or a number.
type Column struct {
	Name    string
	Code    string
	Number  float64
	Numeric bool
}

func code(name, v string) Column {
	return Column{Name: name, Code: v}
}

func number(name string, v float64) Column {
	return Column{Name: name, Number: v, Numeric: true}
}

// Columns returns the vector in model input order.
func (v Vector) Columns() []Column {
	return []Column{
		code("status", v.Status),
		number("duration", float64(v.Duration)),
		code("credit_history", v.CreditHistory),
		code("purpose", v.Purpose),
		number("credit_amount", v.CreditAmount),
		code("savings", v.Savings),
		code("employment", v.Employment),
		number("installment_rate", float64(v.InstallmentRate)),
		code("personal_status_sex", v.PersonalStatusSex),
		code("other_debtors", v.OtherDebtors),
		number("residence_since", float64(v.ResidenceSince)),
		code("property", v.Property),
		number("age", float64(v.Age)),
		code("other_installment_plans", v.OtherInstallmentPlans),
		code("housing", v.Housing),
		number("existing_credits", float64(v.ExistingCredits)),
		code("job", v.Job),
		number("people_liable", float64(v.PeopleLiable)),
		code("telephone", v.Telephone),
		code("foreign_worker", v.ForeignWorker),
	}
}

// FieldNames lists the 20 input names in model order.
func FieldNames() []string {
	cols := Vector{}.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
