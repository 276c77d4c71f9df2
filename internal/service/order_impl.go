package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/models"
	"orderdoc-server/internal/pipeline"
	"orderdoc-server/pkg/ai"
	"orderdoc-server/pkg/pagination"
	"orderdoc-server/pkg/taskmanager"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	captureOptions   = ai.Options{Temperature: 0.3, MaxTokens: 2000}
	responderOptions = ai.Options{Temperature: 0.7, MaxTokens: 500}
)

// Compile-time check to ensure orderServiceImpl implements OrderService
var _ OrderService = (*orderServiceImpl)(nil)

// Dependencies - зависимости OrderService. Cache и Tasks могут быть nil.
type Dependencies struct {
	Repo        interfaces.ProjectRepository
	Completer   ai.Completer
	Parser      *ai.Parser
	Generator   DocumentationGenerator
	Cache       CacheCleaner
	Publisher   interfaces.DocumentationEventPublisher
	Tasks       TaskRunner
	StackPolicy string
	// ProviderConfigured - настроен хотя бы один бэкенд генерации текста.
	ProviderConfigured bool
}

type orderServiceImpl struct {
	repo        interfaces.ProjectRepository
	completer   ai.Completer
	parser      *ai.Parser
	generator   DocumentationGenerator
	cache       CacheCleaner
	publisher   interfaces.DocumentationEventPublisher
	tasks       TaskRunner
	stackPolicy string
	now         func() time.Time
	logger      *zap.Logger
}

// NewOrderService creates a new instance of orderServiceImpl.
func NewOrderService(deps Dependencies, logger *zap.Logger) OrderService {
	logger = logger.Named("OrderService")
	if !deps.ProviderConfigured {
		logger.Warn("No text generation provider configured, AI operations will fail until one is set",
			zap.Error(ai.ErrNoProviderConfigured))
	}
	return &orderServiceImpl{
		repo:        deps.Repo,
		completer:   deps.Completer,
		parser:      deps.Parser,
		generator:   deps.Generator,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		tasks:       deps.Tasks,
		stackPolicy: deps.StackPolicy,
		now:         time.Now,
		logger:      logger,
	}
}

func toAIMessages(history []models.ConversationMessage) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, m := range history {
		out = append(out, ai.Message{Role: ai.Role(m.Role), Content: m.Content})
	}
	return out
}

// CaptureRequirements извлекает требования из переписки одним вызовом модели.
func (s *orderServiceImpl) CaptureRequirements(ctx context.Context, history []models.ConversationMessage) (*models.CapturedRequirements, error) {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: captureSystemPrompt})
	messages = append(messages, toAIMessages(history)...)
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: captureInstruction})

	completion, err := s.completer.Complete(ctx, messages, captureOptions)
	if err != nil {
		s.logger.Error("Requirements capture failed", zap.Error(err))
		return nil, fmt.Errorf("capture requirements: %w", err)
	}
	raw, err := s.parser.Extract(completion.Content)
	if err != nil {
		s.logger.Error("Requirements capture returned unparseable output",
			zap.String("provider", completion.Provider), zap.Error(err))
		return nil, fmt.Errorf("capture requirements: %w", err)
	}
	captured, err := pipeline.ParseCapturedRequirements(raw)
	if err != nil {
		return nil, fmt.Errorf("capture requirements: %w", &ai.ParseError{Preview: string(raw), Cause: err})
	}
	return captured, nil
}

// GenerateDocumentation прогоняет пайплайн и сохраняет результат.
// При ошибке любой стадии заказ не изменяется.
func (s *orderServiceImpl) GenerateDocumentation(ctx context.Context, projectID uuid.UUID) (*models.Documentation, error) {
	log := s.logger.With(zap.String("projectID", projectID.String()))

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	res, err := s.generator.Run(ctx, project)
	if err != nil {
		log.Error("Documentation generation failed", zap.Error(err))
		return nil, err
	}

	project.Documentation = res.Documentation
	project.Status = models.StatusDocumentation
	if err := s.repo.Update(ctx, project); err != nil {
		log.Error("Failed to save generated documentation", zap.Error(err))
		return nil, fmt.Errorf("save documentation: %w", err)
	}
	log.Info("Documentation generated", zap.Int("version", res.Documentation.Version))

	s.publishGenerated(ctx, project)
	return res.Documentation, nil
}

// publishGenerated отправляет событие. Ошибка публикации только логируется.
func (s *orderServiceImpl) publishGenerated(ctx context.Context, project *models.Project) {
	if s.publisher == nil {
		return
	}
	doc := project.Documentation
	event := models.DocumentationGeneratedEvent{
		ProjectID:    project.ID,
		PhoneNumber:  project.PhoneNumber,
		Version:      doc.Version,
		SectionCount: len(doc.Sections),
		GeneratedAt:  doc.GeneratedAt,
	}
	if err := s.publisher.PublishDocumentationGenerated(ctx, event); err != nil {
		s.logger.Warn("Failed to publish documentation generated event",
			zap.String("projectID", project.ID.String()), zap.Error(err))
	}
}

// GenerateDocumentationAsync проверяет, что заказ существует, и запускает генерацию в фоне.
func (s *orderServiceImpl) GenerateDocumentationAsync(ctx context.Context, projectID uuid.UUID, ownerID string) (uuid.UUID, error) {
	if s.tasks == nil {
		return uuid.Nil, errors.New("background tasks are not configured")
	}
	if _, err := s.repo.GetByID(ctx, projectID); err != nil {
		return uuid.Nil, err
	}

	taskID, err := s.tasks.Submit(ctx, TaskKindGenerateDocumentation, ownerID, func(taskCtx context.Context) (interface{}, error) {
		doc, err := s.GenerateDocumentation(taskCtx, projectID)
		if err != nil {
			return nil, err
		}
		return DocumentationTaskResult{
			ProjectID:    projectID,
			Version:      doc.Version,
			SectionCount: len(doc.Sections),
		}, nil
	})
	if err != nil {
		s.logger.Warn("Failed to submit documentation task", zap.String("projectID", projectID.String()), zap.Error(err))
		return uuid.Nil, err
	}
	s.logger.Info("Documentation task submitted",
		zap.String("projectID", projectID.String()), zap.String("taskID", taskID.String()))
	return taskID, nil
}

func (s *orderServiceImpl) GetTask(_ context.Context, taskID uuid.UUID) (taskmanager.Task, error) {
	if s.tasks == nil {
		return taskmanager.Task{}, taskmanager.ErrTaskNotFound
	}
	return s.tasks.Get(taskID)
}

// RespondToMessage добавляет реплику заказчика, получает ответ модели и сохраняет обе реплики.
// Если модель не ответила, переписка не сохраняется.
func (s *orderServiceImpl) RespondToMessage(ctx context.Context, projectID uuid.UUID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", models.ErrEmptyMessage
	}
	log := s.logger.With(zap.String("projectID", projectID.String()))

	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}

	history := make([]models.ConversationMessage, 0, len(project.ConversationHistory)+2)
	history = append(history, project.ConversationHistory...)
	history = append(history, models.ConversationMessage{
		Role:      models.RoleUser,
		Content:   message,
		Timestamp: s.now().UTC(),
	})

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: personaPrompt(s.stackPolicy)})
	messages = append(messages, toAIMessages(history)...)

	completion, err := s.completer.Complete(ctx, messages, responderOptions)
	if err != nil {
		log.Error("Failed to generate reply", zap.Error(err))
		return "", fmt.Errorf("respond to message: %w", err)
	}

	history = append(history, models.ConversationMessage{
		Role:      models.RoleAssistant,
		Content:   completion.Content,
		Timestamp: s.now().UTC(),
	})
	project.ConversationHistory = history
	if err := s.repo.Update(ctx, project); err != nil {
		log.Error("Failed to save conversation", zap.Error(err))
		return "", fmt.Errorf("save conversation: %w", err)
	}

	log.Debug("Reply generated", zap.String("provider", completion.Provider), zap.Int("turns", len(history)))
	return completion.Content, nil
}

// ProcessOrder создает заказ и отвечает на первое сообщение.
// Первое сообщение попадает в переписку один раз, через RespondToMessage.
func (s *orderServiceImpl) ProcessOrder(ctx context.Context, clientID, phoneNumber, initialMessage string) (*OrderResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, models.ErrPhoneRequired
	}
	if strings.TrimSpace(initialMessage) == "" {
		return nil, models.ErrEmptyMessage
	}

	project := &models.Project{
		PhoneNumber:         phoneNumber,
		Title:               models.DefaultProjectTitle,
		Status:              models.StatusRequirementsCapture,
		Requirements:        []models.Requirement{},
		TechStack:           []string{},
		Features:            []string{},
		ConversationHistory: []models.ConversationMessage{},
		AssignedTeam:        []string{},
	}
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		project.ClientID = &clientID
	}
	if err := s.repo.Create(ctx, project); err != nil {
		s.logger.Error("Failed to create project", zap.String("phoneNumber", phoneNumber), zap.Error(err))
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("Project created", zap.String("projectID", project.ID.String()))

	response, err := s.RespondToMessage(ctx, project.ID, initialMessage)
	if err != nil {
		return nil, err
	}
	return &OrderResult{ProjectID: project.ID, Response: response, Created: true}, nil
}

func (s *orderServiceImpl) StartOrContinue(ctx context.Context, clientID, phoneNumber, message string) (*OrderResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, models.ErrPhoneRequired
	}
	if strings.TrimSpace(message) == "" {
		return nil, models.ErrEmptyMessage
	}

	project, err := s.repo.FindActiveByPhone(ctx, phoneNumber)
	if errors.Is(err, models.ErrProjectNotFound) {
		return s.ProcessOrder(ctx, clientID, phoneNumber, message)
	}
	if err != nil {
		return nil, err
	}

	response, err := s.RespondToMessage(ctx, project.ID, message)
	if err != nil {
		return nil, err
	}
	return &OrderResult{ProjectID: project.ID, Response: response}, nil
}

// ApplyCapturedRequirements извлекает требования из сохраненной переписки и дополняет ими заказ.
func (s *orderServiceImpl) ApplyCapturedRequirements(ctx context.Context, projectID uuid.UUID) (*models.CapturedRequirements, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	captured, err := s.CaptureRequirements(ctx, project.ConversationHistory)
	if err != nil {
		return nil, err
	}

	project.TechStack = unionStrings(project.TechStack, captured.TechStack)
	project.Features = unionStrings(project.Features, captured.Features)
	if strings.TrimSpace(project.Description) == "" && captured.Scope != "" {
		project.Description = captured.Scope
	}
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("save captured requirements: %w", err)
	}
	s.logger.Info("Captured requirements applied",
		zap.String("projectID", projectID.String()),
		zap.Int("techStack", len(project.TechStack)),
		zap.Int("features", len(project.Features)),
	)
	return captured, nil
}

// unionStrings дописывает к base новые значения без учета регистра, сохраняя порядок.
func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func (s *orderServiceImpl) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	return s.repo.GetByID(ctx, projectID)
}

func (s *orderServiceImpl) GetProjectByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, models.ErrPhoneRequired
	}
	return s.repo.GetLatestByPhone(ctx, phoneNumber)
}

// ListProjects возвращает страницу заказов, новые первыми.
func (s *orderServiceImpl) ListProjects(ctx context.Context, params ListParams) (*ProjectPage, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, params.Status)
	}
	createdBefore, beforeID, err := pagination.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidCursor, err)
	}

	limit := params.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	filter := models.ProjectFilter{
		ClientID:    params.ClientID,
		PhoneNumber: params.PhoneNumber,
		Status:      params.Status,
		BeforeID:    beforeID,
		Limit:       limit,
	}
	if beforeID != uuid.Nil {
		filter.CreatedBefore = &createdBefore
	}

	projects, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := &ProjectPage{Projects: projects}
	if len(projects) == limit {
		last := projects[len(projects)-1]
		page.NextCursor = pagination.EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func (s *orderServiceImpl) ClearCache(ctx context.Context, pattern string) (int64, error) {
	if s.cache == nil {
		s.logger.Info("Cache clear requested but cache is disabled")
		return 0, nil
	}
	deleted, err := s.cache.ClearCache(ctx, pattern)
	if err != nil {
		s.logger.Error("Failed to clear completion cache", zap.String("pattern", pattern), zap.Error(err))
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("Completion cache cleared", zap.String("pattern", pattern), zap.Int64("deleted", deleted))
	return deleted, nil
}
