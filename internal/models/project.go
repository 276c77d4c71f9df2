package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus - этап жизненного цикла заказа.
type ProjectStatus string

const (
	StatusDraft               ProjectStatus = "draft"
	StatusRequirementsCapture ProjectStatus = "requirements_capture"
	StatusDocumentation       ProjectStatus = "documentation"
	StatusApproved            ProjectStatus = "approved"
	StatusInProgress          ProjectStatus = "in_progress"
	StatusCompleted           ProjectStatus = "completed"
	StatusCancelled           ProjectStatus = "cancelled"
)

// Valid сообщает, входит ли статус в допустимый набор.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRequirementsCapture, StatusDocumentation, StatusApproved,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// AcceptsConversation - статусы, в которых диалог по сбору требований продолжается.
func (s ProjectStatus) AcceptsConversation() bool {
	return s == StatusDraft || s == StatusRequirementsCapture
}

// Priority - приоритет требования.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultCurrency используется, если валюта бюджета не указана.
const DefaultCurrency = "INR"

// DefaultProjectTitle - заголовок нового заказа до уточнения требований.
const DefaultProjectTitle = "New Project"

// Requirement - отдельное требование заказчика.
type Requirement struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
}

// Milestone - контрольная точка графика.
type Milestone struct {
	Name      string     `json:"name"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Completed bool       `json:"completed"`
}

// Timeline - заявленные сроки проекта.
type Timeline struct {
	StartDate  *time.Time  `json:"startDate,omitempty"`
	EndDate    *time.Time  `json:"endDate,omitempty"`
	Milestones []Milestone `json:"milestones,omitempty"`
}

// SpanDays возвращает длительность в целых днях (с округлением вверх),
// если заданы обе даты.
func (t Timeline) SpanDays() (int, bool) {
	if t.StartDate == nil || t.EndDate == nil {
		return 0, false
	}
	hours := t.EndDate.Sub(*t.StartDate).Hours()
	days := int(hours / 24)
	if float64(days)*24 < hours {
		days++
	}
	return days, true
}

// Budget - бюджет, названный заказчиком. Нулевая сумма означает "не указан".
type Budget struct {
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// CurrencyOrDefault возвращает валюту или INR.
func (b Budget) CurrencyOrDefault() string {
	if b.Currency == "" {
		return DefaultCurrency
	}
	return b.Currency
}

// Project - заказ на разработку вместе с перепиской и сгенерированной документацией.
type Project struct {
	ID                  uuid.UUID             `json:"id"`
	PhoneNumber         string                `json:"phoneNumber"`
	ClientID            *string               `json:"clientId,omitempty"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Requirements        []Requirement         `json:"requirements"`
	TechStack           []string              `json:"techStack"`
	Features            []string              `json:"features"`
	Timeline            Timeline              `json:"timeline"`
	Budget              Budget                `json:"budget"`
	Documentation       *Documentation        `json:"documentation,omitempty"`
	Status              ProjectStatus         `json:"status"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
	AssignedTeam        []string              `json:"assignedTeam"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

// NextDocumentationVersion возвращает номер версии для новой документации.
func (p *Project) NextDocumentationVersion() int {
	if p.Documentation == nil {
		return 1
	}
	return p.Documentation.Version + 1
}

// ProjectFilter - параметры выборки списка заказов.
type ProjectFilter struct {
	ClientID    string
	PhoneNumber string
	Status      ProjectStatus
	// Курсор: записи строго старше (CreatedBefore, BeforeID).
	CreatedBefore *time.Time
	BeforeID      uuid.UUID
	Limit         int
}
