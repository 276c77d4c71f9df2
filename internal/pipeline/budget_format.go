package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"orderdoc-server/internal/models"
)

const notAvailable = "N/A"

// FormatBudgetEstimate рендерит оценку бюджета в markdown.
// Используется как раздел budget_estimation, если writer его не вернул.
func FormatBudgetEstimate(est *models.BudgetEstimate) string {
	if est == nil {
		return "Budget estimation not available."
	}
	currency := est.CurrencyOrDefault()

	var b strings.Builder
	b.WriteString("## Budget Estimation\n\n")
	fmt.Fprintf(&b, "**Total Estimated Budget:** %s %s\n\n", amountOrNA(est.TotalBudget), currency)

	if len(est.Breakdown) > 0 {
		b.WriteString("### Budget Breakdown\n\n")
		b.WriteString("| Category | Amount | Percentage | Description |\n")
		b.WriteString("|----------|--------|------------|-------------|\n")
		for _, item := range est.Breakdown {
			fmt.Fprintf(&b, "| %s | %s %s | %s%% | %s |\n",
				textOrNA(item.Category),
				amountOrNA(item.Amount), currency,
				amountOrNA(item.Percentage),
				textOrNA(item.Description),
			)
		}
		b.WriteString("\n")
	}

	if len(est.Phases) > 0 {
		b.WriteString("### Phase-wise Budget\n\n")
		for i, phase := range est.Phases {
			fmt.Fprintf(&b, "**Phase %d: %s**\n", i+1, textOrNA(phase.Name))
			fmt.Fprintf(&b, "- Budget: %s %s\n", amountOrNA(phase.Budget), currency)
			fmt.Fprintf(&b, "- Duration: %s\n", textOrNA(phase.Duration))
			if phase.Description != "" {
				fmt.Fprintf(&b, "- Description: %s\n", phase.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(est.Assumptions) > 0 {
		b.WriteString("### Assumptions\n\n")
		for i, assumption := range est.Assumptions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, assumption)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func amountOrNA(v float64) string {
	if v == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func textOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
