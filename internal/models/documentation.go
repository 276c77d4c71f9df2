package models

import (
	"strings"
	"time"
)

// SectionKind - раздел итоговой документации.
type SectionKind string

const (
	SectionOverview         SectionKind = "overview"
	SectionArchitecture     SectionKind = "architecture"
	SectionAPIEndpoints     SectionKind = "api_endpoints"
	SectionDatabaseSchema   SectionKind = "database_schema"
	SectionTimeline         SectionKind = "timeline"
	SectionTechStack        SectionKind = "tech_stack"
	SectionFeatures         SectionKind = "features"
	SectionBudgetEstimation SectionKind = "budget_estimation"
)

// SectionOrder - фиксированный порядок разделов в документе.
var SectionOrder = []SectionKind{
	SectionOverview,
	SectionArchitecture,
	SectionAPIEndpoints,
	SectionDatabaseSchema,
	SectionTimeline,
	SectionTechStack,
	SectionFeatures,
	SectionBudgetEstimation,
}

const sectionSeparator = "\n\n---\n\n"

// DocumentationSection - один раздел документации.
type DocumentationSection struct {
	Section     SectionKind `json:"section"`
	Content     string      `json:"content"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Documentation - результат одного успешного прогона пайплайна.
type Documentation struct {
	Sections     []DocumentationSection `json:"sections"`
	FullDocument string                 `json:"fullDocument"`
	GeneratedAt  time.Time              `json:"generatedAt"`
	Version      int                    `json:"version"`
}

// RenderFullDocument склеивает разделы в один markdown-документ.
// FullDocument всегда получается этой функцией из Sections.
func RenderFullDocument(sections []DocumentationSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, "# "+string(s.Section)+"\n\n"+s.Content)
	}
	return strings.Join(parts, sectionSeparator)
}

// Section возвращает раздел по виду.
func (d *Documentation) Section(kind SectionKind) (DocumentationSection, bool) {
	for _, s := range d.Sections {
		if s.Section == kind {
			return s, true
		}
	}
	return DocumentationSection{}, false
}
