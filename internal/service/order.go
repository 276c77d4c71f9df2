package service

import (
	"context"

	"orderdoc-server/internal/models"
	"orderdoc-server/internal/pipeline"
	"orderdoc-server/pkg/taskmanager"

	"github.com/google/uuid"
)

// TaskKindGenerateDocumentation - вид фоновой задачи генерации документации.
const TaskKindGenerateDocumentation = "generate_documentation"

// OrderResult - ответ на сообщение заказчика вместе с ID заказа.
type OrderResult struct {
	ProjectID uuid.UUID `json:"projectId"`
	Response  string    `json:"response"`
	// Created - заказ был создан этим сообщением.
	Created bool `json:"created"`
}

// ListParams - фильтры и курсор выборки заказов.
type ListParams struct {
	ClientID    string
	PhoneNumber string
	Status      models.ProjectStatus
	Cursor      string
	Limit       int
}

// ProjectPage - страница заказов. NextCursor пуст на последней странице.
type ProjectPage struct {
	Projects   []models.Project `json:"projects"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// DocumentationTaskResult - результат фоновой генерации документации.
type DocumentationTaskResult struct {
	ProjectID    uuid.UUID `json:"projectId"`
	Version      int       `json:"version"`
	SectionCount int       `json:"sectionCount"`
}

// DocumentationGenerator запускает пайплайн документации для заказа.
type DocumentationGenerator interface {
	Run(ctx context.Context, project *models.Project) (*pipeline.Result, error)
}

// CacheCleaner удаляет записи кэша ответов моделей.
type CacheCleaner interface {
	ClearCache(ctx context.Context, pattern string) (int64, error)
}

// TaskRunner - фоновое выполнение задач.
type TaskRunner interface {
	Submit(ctx context.Context, kind, ownerID string, taskFunc taskmanager.TaskFunc) (uuid.UUID, error)
	Get(taskID uuid.UUID) (taskmanager.Task, error)
}

// OrderService - операции над заказами: диалог с заказчиком, сбор требований, документация.
type OrderService interface {
	// CaptureRequirements извлекает структурированные требования из переписки.
	CaptureRequirements(ctx context.Context, history []models.ConversationMessage) (*models.CapturedRequirements, error)
	// GenerateDocumentation прогоняет пайплайн, сохраняет документацию и переводит заказ в статус documentation.
	GenerateDocumentation(ctx context.Context, projectID uuid.UUID) (*models.Documentation, error)
	// GenerateDocumentationAsync ставит генерацию документации в фоновую очередь.
	GenerateDocumentationAsync(ctx context.Context, projectID uuid.UUID, ownerID string) (uuid.UUID, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (taskmanager.Task, error)
	// RespondToMessage отвечает заказчику и сохраняет обе реплики.
	RespondToMessage(ctx context.Context, projectID uuid.UUID, message string) (string, error)
	ProcessOrder(ctx context.Context, clientID, phoneNumber, initialMessage string) (*OrderResult, error)
	// StartOrContinue продолжает активный заказ для номера телефона или создает новый.
	StartOrContinue(ctx context.Context, clientID, phoneNumber, message string) (*OrderResult, error)
	ApplyCapturedRequirements(ctx context.Context, projectID uuid.UUID) (*models.CapturedRequirements, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	GetProjectByPhone(ctx context.Context, phoneNumber string) (*models.Project, error)
	ListProjects(ctx context.Context, params ListParams) (*ProjectPage, error)
	// ClearCache удаляет кэшированные ответы моделей по шаблону ключа.
	ClearCache(ctx context.Context, pattern string) (int64, error)
}
