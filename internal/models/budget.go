package models

// BudgetItem - строка разбивки бюджета по категориям.
type BudgetItem struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Percentage  float64 `json:"percentage"` // справочно, сумма не обязана быть 100
	Description string  `json:"description"`
}

// BudgetPhase - бюджет отдельного этапа.
type BudgetPhase struct {
	Name        string  `json:"name"`
	Budget      float64 `json:"budget"`
	Duration    string  `json:"duration"`
	Description string  `json:"description"`
}

// BudgetEstimate - оценка стоимости проекта.
type BudgetEstimate struct {
	TotalBudget float64       `json:"totalBudget"`
	Currency    string        `json:"currency"`
	Breakdown   []BudgetItem  `json:"breakdown"`
	Phases      []BudgetPhase `json:"phases"`
	Assumptions []string      `json:"assumptions"`
}

// CurrencyOrDefault возвращает валюту оценки или INR.
func (b *BudgetEstimate) CurrencyOrDefault() string {
	if b.Currency == "" {
		return DefaultCurrency
	}
	return b.Currency
}

// CapturedRequirements - требования, извлеченные из переписки.
type CapturedRequirements struct {
	TechStack []string `json:"techStack"`
	Features  []string `json:"features"`
	Timeline  string   `json:"timeline"`
	Budget    string   `json:"budget"`
	Scope     string   `json:"scope"`
}
