package pipeline

import (
	"encoding/json"
	"math"

	"orderdoc-server/internal/models"
)

// ReaderResult - анализ требований первой стадией.
type ReaderResult struct {
	CoreObjectives       []string
	TechnicalComplexity  string
	KeyDependencies      []string
	RiskFactors          []string
	ResourceRequirements ResourceRequirements
	// Raw - ответ модели в компактном JSON, передается в промпты следующих стадий.
	Raw json.RawMessage
}

// ResourceRequirements - оценка команды и навыков.
type ResourceRequirements struct {
	TeamSize float64
	Timeline string
	Skills   []string
}

func parseReaderResult(raw json.RawMessage) (*ReaderResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	res := &ReaderResult{
		CoreObjectives:      obj.list("coreObjectives", "objectives"),
		TechnicalComplexity: obj.text("technicalComplexity", "complexity"),
		KeyDependencies:     obj.list("keyDependencies", "dependencies"),
		RiskFactors:         obj.list("riskFactors", "risks"),
		Raw:                 raw,
	}
	if rr := obj.object("resourceRequirements", "resources"); rr != nil {
		res.ResourceRequirements.TeamSize, _ = rr.number("teamSize")
		res.ResourceRequirements.Timeline = rr.text("timeline")
		res.ResourceRequirements.Skills = rr.list("skills")
	}
	return res, nil
}

// SearcherResult - рекомендованные паттерны и практики.
type SearcherResult struct {
	ArchitecturalPatterns  []string
	APIDesignPatterns      []string
	DatabaseSchemaPatterns []string
	SecurityConsiderations []string
	ScalabilityApproaches  []string
	Raw                    json.RawMessage
}

func parseSearcherResult(raw json.RawMessage) (*SearcherResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return &SearcherResult{
		ArchitecturalPatterns:  obj.list("architecturalPatterns", "architecturePatterns"),
		APIDesignPatterns:      obj.list("apiDesignPatterns", "apiPatterns"),
		DatabaseSchemaPatterns: obj.list("databaseSchemaPatterns", "databasePatterns"),
		SecurityConsiderations: obj.list("securityConsiderations", "security"),
		ScalabilityApproaches:  obj.list("scalabilityApproaches", "scalability"),
		Raw:                    raw,
	}, nil
}

// BudgetResult - оценка бюджета вместе с исходным JSON.
type BudgetResult struct {
	Estimate models.BudgetEstimate
	Raw      json.RawMessage
}

func parseBudgetResult(raw json.RawMessage) (*BudgetResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	est := models.BudgetEstimate{
		Currency:    obj.text("currency"),
		Assumptions: obj.list("assumptions", "notes"),
	}
	est.TotalBudget, _ = obj.number("totalBudget", "total", "totalEstimatedBudget")
	for _, item := range obj.objects("breakdown", "categories") {
		bi := models.BudgetItem{
			Category:    item.text("category", "name"),
			Description: item.text("description"),
		}
		bi.Amount, _ = item.number("amount", "cost")
		bi.Percentage, _ = item.number("percentage", "percent")
		est.Breakdown = append(est.Breakdown, bi)
	}
	for _, phase := range obj.objects("phases", "milestones") {
		bp := models.BudgetPhase{
			Name:        phase.text("name", "phase"),
			Duration:    phase.text("duration"),
			Description: phase.text("description"),
		}
		bp.Budget, _ = phase.number("budget", "amount", "cost")
		est.Phases = append(est.Phases, bp)
	}
	return &BudgetResult{Estimate: est, Raw: raw}, nil
}

// writerFields - разделы документа и имена полей, под которыми модель может их вернуть.
var writerFields = []struct {
	kind models.SectionKind
	keys []string
}{
	{models.SectionOverview, []string{"projectOverview", "overview"}},
	{models.SectionArchitecture, []string{"technicalArchitecture", "architecture"}},
	{models.SectionAPIEndpoints, []string{"apiEndpoints", "endpoints"}},
	{models.SectionDatabaseSchema, []string{"databaseSchema", "schema"}},
	{models.SectionTimeline, []string{"implementationTimeline", "timeline"}},
	{models.SectionTechStack, []string{"techStackDetails", "techStack"}},
	{models.SectionFeatures, []string{"featuresBreakdown", "features"}},
	{models.SectionBudgetEstimation, []string{"budgetEstimation", "budget"}},
}

// WriterResult - тексты разделов по видам. Отсутствующие разделы не попадают в map.
type WriterResult struct {
	Sections map[models.SectionKind]string
}

func parseWriterResult(raw json.RawMessage) (*WriterResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	res := &WriterResult{Sections: make(map[models.SectionKind]string, len(writerFields))}
	for _, f := range writerFields {
		if content := obj.firstText(f.keys...); content != "" {
			res.Sections[f.kind] = content
		}
	}
	return res, nil
}

// VerifierResult - самопроверка документа. Completeness < 0 означает, что оценка не пришла.
type VerifierResult struct {
	Completeness              float64
	TechnicalAccuracy         string
	Consistency               string
	MissingInformation        []string
	AreasNeedingClarification []string
}

// HasCompleteness сообщает, вернула ли модель оценку полноты.
func (v *VerifierResult) HasCompleteness() bool {
	return v.Completeness >= 0
}

func parseVerifierResult(raw json.RawMessage) (*VerifierResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	res := &VerifierResult{
		Completeness:              -1,
		TechnicalAccuracy:         obj.text("technicalAccuracy"),
		Consistency:               obj.text("consistency"),
		MissingInformation:        obj.list("missingInformation"),
		AreasNeedingClarification: obj.list("areasNeedingClarification"),
	}
	if c, ok := obj.number("completeness"); ok && !math.IsNaN(c) {
		res.Completeness = math.Max(0, math.Min(1, c))
	}
	return res, nil
}

// ParseCapturedRequirements разбирает ответ этапа сбора требований.
func ParseCapturedRequirements(raw json.RawMessage) (*models.CapturedRequirements, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	return &models.CapturedRequirements{
		TechStack: obj.list("techStack", "technologies"),
		Features:  obj.list("features"),
		Timeline:  obj.text("timeline"),
		Budget:    obj.text("budget"),
		Scope:     obj.text("scope"),
	}, nil
}
