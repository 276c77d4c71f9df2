package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderdoc-server/internal/models"
)

const jsonOnlyRule = "IMPORTANT: You MUST return ONLY valid JSON, no markdown, no explanations, no code blocks."

const (
	readerSystemPrompt   = "You are a technical reader agent that analyzes project requirements. You MUST always return valid JSON only, never markdown or explanations."
	budgetSystemPrompt   = "You are an expert project cost estimator specializing in software development projects. Provide accurate, realistic budget estimates based on project requirements. You MUST always return valid JSON only, never markdown or explanations."
	writerSystemPrompt   = "You are a technical writer agent that creates comprehensive project documentation. You MUST always return valid JSON only, never markdown or explanations."
	verifierSystemPrompt = "You are a verification agent that ensures documentation quality and completeness. You MUST always return valid JSON only, never markdown or explanations."
)

func searcherSystemPrompt(stackPolicy string) string {
	return "You are a technical searcher agent that finds relevant patterns and best practices. " +
		stackPolicy + " You MUST always return valid JSON only, never markdown or explanations."
}

func readerPrompt(p *models.Project) string {
	return fmt.Sprintf(`Analyze the following project requirements and extract key information:

Project Title: %s
Description: %s
Requirements: %s
Tech Stack: %s
Features: %s

%s Return a JSON object with the following structure:

{
  "coreObjectives": ["objective1", "objective2"],
  "technicalComplexity": "low|medium|high",
  "keyDependencies": ["dependency1", "dependency2"],
  "riskFactors": ["risk1", "risk2"],
  "resourceRequirements": {
    "teamSize": number,
    "timeline": "description",
    "skills": ["skill1", "skill2"]
  }
}

Return ONLY the JSON object, nothing else.`,
		p.Title, p.Description, requirementsJSON(p.Requirements),
		strings.Join(p.TechStack, ", "), strings.Join(p.Features, ", "), jsonOnlyRule)
}

func searcherPrompt(p *models.Project, reader *ReaderResult, stackPolicy string) string {
	return fmt.Sprintf(`Based on this project analysis, suggest relevant technical patterns, best practices, and architectural approaches:

%s

Tech Stack: %s

IMPORTANT: %s

%s Return a JSON object with the following structure:

{
  "architecturalPatterns": ["pattern1", "pattern2"],
  "apiDesignPatterns": ["pattern1", "pattern2"],
  "databaseSchemaPatterns": ["pattern1", "pattern2"],
  "securityConsiderations": ["consideration1", "consideration2"],
  "scalabilityApproaches": ["approach1", "approach2"]
}

Return ONLY the JSON object, nothing else.`,
		reader.Raw, strings.Join(p.TechStack, ", "), stackPolicy, jsonOnlyRule)
}

// timelineHint - длительность проекта в днях или "Not specified".
func timelineHint(t models.Timeline) string {
	days, ok := t.SpanDays()
	if !ok {
		return "Not specified"
	}
	return fmt.Sprintf("%d days", days)
}

// budgetHint - бюджет, названный заказчиком, или "Not specified".
func budgetHint(b models.Budget) string {
	if b.Amount == 0 {
		return "Not specified"
	}
	return amountOrNA(b.Amount) + " " + b.CurrencyOrDefault()
}

func orNotSpecified(items []string) string {
	if len(items) == 0 {
		return "Not specified"
	}
	return strings.Join(items, ", ")
}

func budgetPrompt(p *models.Project, reader *ReaderResult) string {
	description := p.Description
	if description == "" {
		description = notAvailable
	}
	return fmt.Sprintf(`Estimate the project budget based on the following information:

Project: %s
Description: %s
Tech Stack: %s
Features: %s
Timeline: %s
Current Budget (if mentioned): %s
Analysis: %s

Consider:
- Development complexity (frontend, backend, mobile apps)
- Number of features and their complexity
- Tech stack requirements
- Timeline constraints
- Team size needed
- Third-party services (payment gateways, hosting, APIs)
- Testing and QA
- Deployment and DevOps
- Maintenance and support

Provide a detailed budget breakdown in %s with:
- Total estimated budget
- Breakdown by category (Development, Design, Testing, DevOps, Third-party services, Contingency)
- Cost per phase/milestone if applicable
- Assumptions and notes

%s Return a JSON object with this exact structure:

{
  "totalBudget": number,
  "currency": "%s",
  "breakdown": [
    {
      "category": "Development",
      "amount": number,
      "percentage": number,
      "description": "description"
    }
  ],
  "phases": [
    {
      "name": "Phase name",
      "budget": number,
      "duration": "duration",
      "description": "description"
    }
  ],
  "assumptions": ["assumption1", "assumption2"]
}

Return ONLY the JSON object, nothing else.`,
		p.Title, description, orNotSpecified(p.TechStack), orNotSpecified(p.Features),
		timelineHint(p.Timeline), budgetHint(p.Budget), reader.Raw,
		p.Budget.CurrencyOrDefault(), jsonOnlyRule, p.Budget.CurrencyOrDefault())
}

func writerPrompt(p *models.Project, reader *ReaderResult, searcher *SearcherResult, budget *BudgetResult, stackPolicy string) string {
	return fmt.Sprintf(`Generate comprehensive development documentation for this project:

Project: %s
Analysis: %s
Patterns: %s
Budget Estimate: %s

IMPORTANT: %s The documentation must follow this technology policy.

Create documentation sections:
1. Project Overview
2. Technical Architecture
3. API Endpoints Specification
4. Database Schema
5. Implementation Timeline
6. Tech Stack Details
7. Features Breakdown
8. Budget Estimation (include the detailed budget breakdown with categories, phases, and assumptions)

%s Return a JSON object with this exact structure:

{
  "projectOverview": "overview text",
  "technicalArchitecture": "architecture text",
  "apiEndpoints": "endpoints text",
  "databaseSchema": "schema text",
  "implementationTimeline": "timeline text",
  "techStackDetails": "tech stack text",
  "featuresBreakdown": "features text",
  "budgetEstimation": "budget text"
}

Return ONLY the JSON object, nothing else.`,
		p.Title, reader.Raw, searcher.Raw, budget.Raw, stackPolicy, jsonOnlyRule)
}

func verifierPrompt(p *models.Project, fullDocument string) string {
	return fmt.Sprintf(`Verify the completeness and quality of this documentation:

Project Requirements: %s
Generated Documentation: %s

Check for:
- Completeness (all sections present)
- Technical accuracy
- Consistency
- Missing information
- Areas needing clarification

%s Return a JSON object with this structure:

{
  "completeness": 0.0 to 1.0,
  "technicalAccuracy": "assessment",
  "consistency": "assessment",
  "missingInformation": ["item1", "item2"],
  "areasNeedingClarification": ["area1", "area2"]
}

Return ONLY the JSON object, nothing else.`,
		requirementsJSON(p.Requirements), fullDocument, jsonOnlyRule)
}

func requirementsJSON(reqs []models.Requirement) string {
	if reqs == nil {
		reqs = []models.Requirement{}
	}
	data, err := json.Marshal(reqs)
	if err != nil {
		return "[]"
	}
	return string(data)
}
