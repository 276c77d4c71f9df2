package interfaces

import (
	"context"

	"orderdoc-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - общий интерфейс для *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ProjectRepository defines persistence of order projects.
// Методы возвращают models.ErrProjectNotFound, если запись не найдена.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// GetLatestByPhone возвращает самый свежий (по updated_at) заказ для номера.
	GetLatestByPhone(ctx context.Context, phoneNumber string) (*models.Project, error)
	// FindActiveByPhone возвращает самый свежий заказ в статусе draft или requirements_capture.
	FindActiveByPhone(ctx context.Context, phoneNumber string) (*models.Project, error)
	// List возвращает заказы, новые первыми.
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	// Update сохраняет все изменяемые поля заказа и обновляет updated_at.
	Update(ctx context.Context, project *models.Project) error
}

// DocumentationEventPublisher publishes notifications about generated documentation.
type DocumentationEventPublisher interface {
	PublishDocumentationGenerated(ctx context.Context, event models.DocumentationGeneratedEvent) error
}
