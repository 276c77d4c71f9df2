package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderdoc-server/internal/models"
	"orderdoc-server/pkg/ai"

	"go.uber.org/zap"
)

// StageName - имя стадии пайплайна.
type StageName string

const (
	StageReader          StageName = "reader"
	StageSearcher        StageName = "searcher"
	StageBudgetEstimator StageName = "budget_estimator"
	StageWriter          StageName = "writer"
	StageVerifier        StageName = "verifier"
)

// CompletenessThreshold - оценка верификатора ниже порога только логируется.
const CompletenessThreshold = 0.8

// Stage описывает одну стадию: зависимости, параметры вызова модели,
// построение сообщений и прием разобранного результата.
type Stage struct {
	Name      StageName
	DependsOn []StageName
	Options   ai.Options
	Build     func(st *runState) []ai.Message
	Accept    func(st *runState, raw json.RawMessage) error
}

// runState - результаты стадий одного прогона.
type runState struct {
	project     *models.Project
	stackPolicy string
	now         time.Time

	reader   *ReaderResult
	searcher *SearcherResult
	budget   *BudgetResult
	writer   *WriterResult
	verifier *VerifierResult

	sections     []models.DocumentationSection
	fullDocument string

	done map[StageName]bool
}

// Result - итог успешного прогона.
type Result struct {
	Documentation *models.Documentation
	Verification  *VerifierResult
}

// Pipeline прогоняет пять стадий генерации документации для одного заказа.
type Pipeline struct {
	completer   ai.Completer
	parser      *ai.Parser
	stackPolicy string
	stages      []Stage
	now         func() time.Time
	logger      *zap.Logger
}

// New создает пайплайн. stackPolicy подставляется в промпты searcher и writer.
func New(completer ai.Completer, parser *ai.Parser, stackPolicy string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		completer:   completer,
		parser:      parser,
		stackPolicy: stackPolicy,
		stages:      DefaultStages(),
		now:         time.Now,
		logger:      logger.Named("DocumentationPipeline"),
	}
}

func systemAndUser(system, user string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: user},
	}
}

// DefaultStages возвращает стадии в порядке выполнения.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:    StageReader,
			Options: ai.Options{Temperature: 0.3, MaxTokens: 1500},
			Build: func(st *runState) []ai.Message {
				return systemAndUser(readerSystemPrompt, readerPrompt(st.project))
			},
			Accept: func(st *runState, raw json.RawMessage) (err error) {
				st.reader, err = parseReaderResult(raw)
				return err
			},
		},
		{
			Name:      StageSearcher,
			DependsOn: []StageName{StageReader},
			Options:   ai.Options{Temperature: 0.3, MaxTokens: 1500},
			Build: func(st *runState) []ai.Message {
				return systemAndUser(searcherSystemPrompt(st.stackPolicy), searcherPrompt(st.project, st.reader, st.stackPolicy))
			},
			Accept: func(st *runState, raw json.RawMessage) (err error) {
				st.searcher, err = parseSearcherResult(raw)
				return err
			},
		},
		{
			Name:      StageBudgetEstimator,
			DependsOn: []StageName{StageReader},
			Options:   ai.Options{Temperature: 0.3, MaxTokens: 2000},
			Build: func(st *runState) []ai.Message {
				return systemAndUser(budgetSystemPrompt, budgetPrompt(st.project, st.reader))
			},
			Accept: func(st *runState, raw json.RawMessage) (err error) {
				st.budget, err = parseBudgetResult(raw)
				return err
			},
		},
		{
			Name:      StageWriter,
			DependsOn: []StageName{StageReader, StageSearcher, StageBudgetEstimator},
			Options:   ai.Options{Temperature: 0.5, MaxTokens: 4000},
			Build: func(st *runState) []ai.Message {
				return systemAndUser(writerSystemPrompt, writerPrompt(st.project, st.reader, st.searcher, st.budget, st.stackPolicy))
			},
			Accept: func(st *runState, raw json.RawMessage) (err error) {
				st.writer, err = parseWriterResult(raw)
				if err != nil {
					return err
				}
				st.sections = assembleSections(st.writer, &st.budget.Estimate, st.now)
				st.fullDocument = models.RenderFullDocument(st.sections)
				return nil
			},
		},
		{
			Name:      StageVerifier,
			DependsOn: []StageName{StageWriter},
			Options:   ai.Options{Temperature: 0.3, MaxTokens: 1000},
			Build: func(st *runState) []ai.Message {
				return systemAndUser(verifierSystemPrompt, verifierPrompt(st.project, st.fullDocument))
			},
			Accept: func(st *runState, raw json.RawMessage) (err error) {
				st.verifier, err = parseVerifierResult(raw)
				return err
			},
		},
	}
}

// assembleSections раскладывает ответ writer по фиксированному порядку разделов.
// Пустые разделы пропускаются. Для бюджета без текста от writer берется FormatBudgetEstimate.
func assembleSections(w *WriterResult, budget *models.BudgetEstimate, generatedAt time.Time) []models.DocumentationSection {
	sections := make([]models.DocumentationSection, 0, len(models.SectionOrder))
	for _, kind := range models.SectionOrder {
		content := w.Sections[kind]
		if content == "" && kind == models.SectionBudgetEstimation {
			content = FormatBudgetEstimate(budget)
		}
		if content == "" {
			continue
		}
		sections = append(sections, models.DocumentationSection{
			Section:     kind,
			Content:     content,
			GeneratedAt: generatedAt,
		})
	}
	return sections
}

// Run выполняет все стадии и собирает документацию. Заказ не изменяется и не сохраняется.
func (p *Pipeline) Run(ctx context.Context, project *models.Project) (*Result, error) {
	st := &runState{
		project:     project,
		stackPolicy: p.stackPolicy,
		now:         p.now().UTC(),
		done:        make(map[StageName]bool, len(p.stages)),
	}
	log := p.logger.With(zap.String("projectID", project.ID.String()))
	log.Info("Documentation pipeline started")

	if err := p.runStages(ctx, p.stages, st, log); err != nil {
		log.Error("Documentation pipeline aborted", zap.Error(err))
		return nil, err
	}

	doc := &models.Documentation{
		Sections:     st.sections,
		FullDocument: st.fullDocument,
		GeneratedAt:  st.now,
		Version:      project.NextDocumentationVersion(),
	}
	log.Info("Documentation pipeline finished",
		zap.Int("version", doc.Version),
		zap.Int("sections", len(doc.Sections)),
	)
	return &Result{Documentation: doc, Verification: st.verifier}, nil
}

// runStages выполняет стадии строго по очереди. Любая ошибка прерывает прогон.
func (p *Pipeline) runStages(ctx context.Context, stages []Stage, st *runState, log *zap.Logger) error {
	for _, stage := range stages {
		for _, dep := range stage.DependsOn {
			if !st.done[dep] {
				return &StageFailureError{Stage: stage.Name, Err: fmt.Errorf("%w: %s", ErrMissingDependency, dep)}
			}
		}

		stageLog := log.With(zap.String("stage", string(stage.Name)))
		start := time.Now()
		if err := p.runStage(ctx, stage, st, stageLog); err != nil {
			stageDuration.WithLabelValues(string(stage.Name), "error").Observe(time.Since(start).Seconds())
			return &StageFailureError{Stage: stage.Name, Err: err}
		}
		stageDuration.WithLabelValues(string(stage.Name), "ok").Observe(time.Since(start).Seconds())
		st.done[stage.Name] = true
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, st *runState, log *zap.Logger) error {
	completion, err := p.completer.Complete(ctx, stage.Build(st), stage.Options)
	if err != nil {
		log.Warn("Stage completion failed", zap.Error(err))
		return err
	}

	raw, err := p.parser.Extract(completion.Content)
	if err != nil {
		log.Warn("Stage output could not be parsed", zap.String("provider", completion.Provider), zap.Error(err))
		return err
	}
	if err := stage.Accept(st, raw); err != nil {
		log.Warn("Stage output rejected", zap.Error(err))
		return err
	}

	if stage.Name == StageVerifier && st.verifier != nil && st.verifier.HasCompleteness() {
		verifierCompleteness.Observe(st.verifier.Completeness)
		if st.verifier.Completeness < CompletenessThreshold {
			log.Warn("Documentation completeness below threshold",
				zap.Float64("completeness", st.verifier.Completeness),
				zap.Strings("missingInformation", st.verifier.MissingInformation),
			)
		}
	}

	log.Info("Stage completed",
		zap.String("provider", completion.Provider),
		zap.Bool("cached", completion.Cached),
	)
	return nil
}
