package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentationGeneratedEvent публикуется после сохранения новой версии документации.
type DocumentationGeneratedEvent struct {
	ProjectID    uuid.UUID `json:"project_id"`
	PhoneNumber  string    `json:"phone_number"`
	Version      int       `json:"version"`
	SectionCount int       `json:"section_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}
