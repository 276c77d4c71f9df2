package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orderdoc-server/internal/mocks"
	"orderdoc-server/internal/models"
	"orderdoc-server/pkg/ai"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	readerResponse = "Here is the analysis:\n```json\n" + `{
  "coreObjectives": ["Online ordering"],
  "technicalComplexity": "medium",
  "keyDependencies": ["payment gateway"],
  "riskFactors": ["tight timeline",],
  "resourceRequirements": {"teamSize": 4, "timeline": "3 months", "skills": ["React", "Node.js"]}
}` + "\n```"
	searcherResponse = `{"architecturalPatterns": ["MVC"], "apiDesignPatterns": ["REST"], "databaseSchemaPatterns": ["document"], "securityConsiderations": ["JWT"], "scalabilityApproaches": ["horizontal"]}`
	budgetResponse   = `{"totalBudget": 450000, "currency": "INR", "breakdown": [{"category": "Development", "amount": 300000, "percentage": 66.7, "description": "Core build"}], "phases": [{"name": "MVP", "budget": 200000, "duration": "6 weeks"}], "assumptions": ["Team of 4"]}`
	// writer не вернул techStackDetails и budgetEstimation.
	writerResponse = `Sure! {
  "projectOverview": "A food delivery platform.",
  "architecture": "Three tier.",
  "apiEndpoints": "POST /orders",
  "schema": {"orders": ["id", "total"]},
  "implementationTimeline": "12 weeks",
  "featuresBreakdown": "Cart, payments"
}`
	lowScoreVerifierResponse = `{"completeness": 0.4, "technicalAccuracy": "ok", "consistency": "ok", "missingInformation": ["tech stack"], "areasNeedingClarification": []}`
)

func stageCall(m *mocks.MockCompleter, systemMarker string, opts interface{}) *mock.Call {
	return m.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []ai.Message) bool {
		return len(msgs) == 2 && msgs[0].Role == ai.RoleSystem && strings.Contains(msgs[0].Content, systemMarker)
	}), opts)
}

func completion(content string) *ai.Completion {
	return &ai.Completion{Content: content, Provider: "sarvam"}
}

func testProject() *models.Project {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(84 * 24 * time.Hour)
	return &models.Project{
		ID:           uuid.New(),
		PhoneNumber:  "+911234567890",
		Title:        "FoodNow",
		Description:  "Food delivery app",
		Requirements: []models.Requirement{{Category: "payments", Description: "UPI", Priority: models.PriorityHigh}},
		TechStack:    []string{"React Native"},
		Features:     []string{"cart", "payments"},
		Timeline:     models.Timeline{StartDate: &start, EndDate: &end},
		Documentation: &models.Documentation{
			Version: 2,
		},
	}
}

func newTestPipeline(completer ai.Completer, logger *zap.Logger) *Pipeline {
	p := New(completer, ai.NewParser(zap.NewNop()), "Use the MERN stack.", logger)
	p.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPipeline_Run_LowCompletenessStillProducesArtifact(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	stageCall(completer, "technical reader agent", ai.Options{Temperature: 0.3, MaxTokens: 1500}).Return(completion(readerResponse), nil).Once()
	stageCall(completer, "technical searcher agent", ai.Options{Temperature: 0.3, MaxTokens: 1500}).Return(completion(searcherResponse), nil).Once()
	stageCall(completer, "cost estimator", ai.Options{Temperature: 0.3, MaxTokens: 2000}).Return(completion(budgetResponse), nil).Once()
	stageCall(completer, "technical writer agent", ai.Options{Temperature: 0.5, MaxTokens: 4000}).Return(completion(writerResponse), nil).Once()
	stageCall(completer, "verification agent", ai.Options{Temperature: 0.3, MaxTokens: 1000}).Return(completion(lowScoreVerifierResponse), nil).Once()

	core, logs := observer.New(zapcore.WarnLevel)
	p := newTestPipeline(completer, zap.New(core))
	project := testProject()

	res, err := p.Run(context.Background(), project)
	require.NoError(t, err)
	doc := res.Documentation

	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, 2, project.Documentation.Version, "project must not be mutated")
	assert.InDelta(t, 0.4, res.Verification.Completeness, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("Documentation completeness below threshold").Len())

	var kinds []models.SectionKind
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Section)
		assert.Equal(t, p.now(), s.GeneratedAt)
	}
	assert.Equal(t, []models.SectionKind{
		models.SectionOverview,
		models.SectionArchitecture,
		models.SectionAPIEndpoints,
		models.SectionDatabaseSchema,
		models.SectionTimeline,
		models.SectionFeatures,
		models.SectionBudgetEstimation,
	}, kinds)

	_, hasTechStack := doc.Section(models.SectionTechStack)
	assert.False(t, hasTechStack)

	schema, _ := doc.Section(models.SectionDatabaseSchema)
	assert.Equal(t, "{\n  \"orders\": [\n    \"id\",\n    \"total\"\n  ]\n}", schema.Content)

	budget, ok := doc.Section(models.SectionBudgetEstimation)
	require.True(t, ok)
	assert.Contains(t, budget.Content, "**Total Estimated Budget:** 450000 INR")

	assert.Equal(t, models.RenderFullDocument(doc.Sections), doc.FullDocument)
	assert.True(t, strings.HasPrefix(doc.FullDocument, "# overview\n\nA food delivery platform.\n\n---\n\n# architecture"))
}

func TestPipeline_Run_FirstDocumentationIsVersionOne(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	stageCall(completer, "technical reader agent", mock.Anything).Return(completion(readerResponse), nil).Once()
	stageCall(completer, "technical searcher agent", mock.Anything).Return(completion(searcherResponse), nil).Once()
	stageCall(completer, "cost estimator", mock.Anything).Return(completion(budgetResponse), nil).Once()
	stageCall(completer, "technical writer agent", mock.Anything).Return(completion(`{"overview": "x", "budget": "Custom budget text"}`), nil).Once()
	stageCall(completer, "verification agent", mock.Anything).Return(completion(`{"technicalAccuracy": "fine"}`), nil).Once()

	project := testProject()
	project.Documentation = nil

	res, err := newTestPipeline(completer, zap.NewNop()).Run(context.Background(), project)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Documentation.Version)
	assert.False(t, res.Verification.HasCompleteness())

	budget, ok := res.Documentation.Section(models.SectionBudgetEstimation)
	require.True(t, ok)
	assert.Equal(t, "Custom budget text", budget.Content)
}

func TestPipeline_Run_ParseFailureAbortsRun(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	stageCall(completer, "technical reader agent", mock.Anything).Return(completion(readerResponse), nil).Once()
	stageCall(completer, "technical searcher agent", mock.Anything).Return(completion(searcherResponse), nil).Once()
	stageCall(completer, "cost estimator", mock.Anything).Return(completion(budgetResponse), nil).Once()
	stageCall(completer, "technical writer agent", mock.Anything).Return(completion("I'm sorry, I cannot produce that."), nil).Once()
	// verifier не должен вызываться: у мока нет для него ожидания.

	res, err := newTestPipeline(completer, zap.NewNop()).Run(context.Background(), testProject())
	require.Error(t, err)
	assert.Nil(t, res)

	var stageErr *StageFailureError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageWriter, stageErr.Stage)

	var parseErr *ai.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestPipeline_Run_ProviderUnavailable(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	unavailable := &ai.ProviderUnavailableError{Attempted: []string{"sarvam", "gemini"}}
	stageCall(completer, "technical reader agent", mock.Anything).Return(nil, unavailable).Once()

	_, err := newTestPipeline(completer, zap.NewNop()).Run(context.Background(), testProject())

	var stageErr *StageFailureError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageReader, stageErr.Stage)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
}

func TestPipeline_Run_NonObjectResultFailsStage(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	stageCall(completer, "technical reader agent", mock.Anything).Return(completion(`["just", "a", "list"]`), nil).Once()

	_, err := newTestPipeline(completer, zap.NewNop()).Run(context.Background(), testProject())
	var stageErr *StageFailureError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageReader, stageErr.Stage)
}

func TestRunStages_MissingDependency(t *testing.T) {
	p := newTestPipeline(mocks.NewMockCompleter(t), zap.NewNop())
	var writer Stage
	for _, s := range DefaultStages() {
		if s.Name == StageWriter {
			writer = s
		}
	}

	st := &runState{project: testProject(), done: map[StageName]bool{StageReader: true}}
	err := p.runStages(context.Background(), []Stage{writer}, st, zap.NewNop())

	var stageErr *StageFailureError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageWriter, stageErr.Stage)
	assert.True(t, errors.Is(err, ErrMissingDependency))
}

func TestRunStages_SingleStageWithFixtures(t *testing.T) {
	completer := mocks.NewMockCompleter(t)
	stageCall(completer, "technical writer agent", mock.Anything).Return(completion(`{"overview": "Only overview"}`), nil).Once()

	p := newTestPipeline(completer, zap.NewNop())
	reader, err := parseReaderResult([]byte(`{"coreObjectives": ["x"]}`))
	require.NoError(t, err)
	searcher, err := parseSearcherResult([]byte(`{}`))
	require.NoError(t, err)
	budget, err := parseBudgetResult([]byte(`{"totalBudget": 1000, "currency": "USD"}`))
	require.NoError(t, err)

	st := &runState{
		project:  testProject(),
		now:      p.now(),
		reader:   reader,
		searcher: searcher,
		budget:   budget,
		done:     map[StageName]bool{StageReader: true, StageSearcher: true, StageBudgetEstimator: true},
	}
	stages := DefaultStages()
	require.NoError(t, p.runStages(context.Background(), stages[3:4], st, zap.NewNop()))

	require.Len(t, st.sections, 2)
	assert.Equal(t, models.SectionOverview, st.sections[0].Section)
	assert.Equal(t, models.SectionBudgetEstimation, st.sections[1].Section)
	assert.Contains(t, st.sections[1].Content, "1000 USD")
	assert.True(t, st.done[StageWriter])
}

func TestDefaultStages_DependenciesPrecedeStage(t *testing.T) {
	stages := DefaultStages()
	names := make([]StageName, 0, len(stages))
	seen := map[StageName]bool{}
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			assert.True(t, seen[dep], "stage %s depends on %s which runs later", s.Name, dep)
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}
	assert.Equal(t, []StageName{StageReader, StageSearcher, StageBudgetEstimator, StageWriter, StageVerifier}, names)
}
