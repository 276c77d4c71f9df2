package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit - размер страницы списка заказов по умолчанию.
	DefaultListLimit = 50
	// MaxListLimit - верхняя граница размера страницы.
	MaxListLimit = 100
)

const projectColumns = `id, phone_number, client_id, title, description, requirements, tech_stack, features,
	timeline, budget, documentation, status, conversation_history, assigned_team, created_at, updated_at`

const (
	createProjectQuery = `
        INSERT INTO projects (` + projectColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `
	getProjectByIDQuery = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	getLatestProjectByPhoneQuery = `SELECT ` + projectColumns + `
        FROM projects
        WHERE phone_number = $1
        ORDER BY updated_at DESC, id DESC
        LIMIT 1`

	findActiveProjectByPhoneQuery = `SELECT ` + projectColumns + `
        FROM projects
        WHERE phone_number = $1 AND status IN ('draft', 'requirements_capture')
        ORDER BY updated_at DESC, id DESC
        LIMIT 1`

	updateProjectQuery = `
        UPDATE projects SET
            phone_number = $2,
            client_id = $3,
            title = $4,
            description = $5,
            requirements = $6,
            tech_stack = $7,
            features = $8,
            timeline = $9,
            budget = $10,
            documentation = $11,
            status = $12,
            conversation_history = $13,
            assigned_team = $14,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at`
)

// Compile-time check
var _ interfaces.ProjectRepository = (*pgProjectRepository)(nil)

type pgProjectRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgProjectRepository создает репозиторий заказов поверх пула или транзакции.
func NewPgProjectRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ProjectRepository {
	return &pgProjectRepository{
		db:     db,
		logger: logger.Named("PgProjectRepo"),
	}
}

// Create вставляет новый заказ. Пустые ID, статус и временные метки заполняются.
func (r *pgProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = models.StatusDraft
	}
	if project.Title == "" {
		project.Title = models.DefaultProjectTitle
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.UpdatedAt.IsZero() {
		project.UpdatedAt = project.CreatedAt
	}
	normalizeCollections(project)

	logFields := []zap.Field{zap.String("projectID", project.ID.String()), zap.String("phone", project.PhoneNumber)}
	r.logger.Debug("Creating project", logFields...)

	docs, err := encodeProjectJSON(project)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, createProjectQuery,
		project.ID,
		project.PhoneNumber,
		project.ClientID,
		project.Title,
		project.Description,
		docs.requirements,
		project.TechStack,
		project.Features,
		docs.timeline,
		docs.budget,
		docs.documentation,
		string(project.Status),
		docs.conversation,
		project.AssignedTeam,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create project", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create project: %w", err)
	}
	r.logger.Info("Project created", logFields...)
	return nil
}

// GetByID возвращает заказ по ID.
func (r *pgProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.getOne(ctx, "get project by id", getProjectByIDQuery, id, zap.String("projectID", id.String()))
}

// GetLatestByPhone возвращает самый свежий заказ для номера.
func (r *pgProjectRepository) GetLatestByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	return r.getOne(ctx, "get latest project by phone", getLatestProjectByPhoneQuery, phoneNumber, zap.String("phone", phoneNumber))
}

// FindActiveByPhone возвращает самый свежий заказ, по которому еще идет сбор требований.
func (r *pgProjectRepository) FindActiveByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	return r.getOne(ctx, "find active project by phone", findActiveProjectByPhoneQuery, phoneNumber, zap.String("phone", phoneNumber))
}

func (r *pgProjectRepository) getOne(ctx context.Context, op, query string, arg interface{}, field zap.Field) (*models.Project, error) {
	log := r.logger.With(field)
	log.Debug("Querying project", zap.String("op", op))

	var row projectRow
	if err := pgxscan.Get(ctx, r.db, &row, query, arg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug("Project not found", zap.String("op", op))
			return nil, models.ErrProjectNotFound
		}
		log.Error("Failed to query project", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	project, err := row.toModel()
	if err != nil {
		log.Error("Failed to decode project row", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	return project, nil
}

// List возвращает страницу заказов, новые первыми.
// Курсор (CreatedBefore, BeforeID) отбирает записи строго после последней записи предыдущей страницы.
func (r *pgProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	var (
		conditions []string
		args       []interface{}
	)
	addArg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ClientID != "" {
		conditions = append(conditions, "client_id = "+addArg(filter.ClientID))
	}
	if filter.PhoneNumber != "" {
		conditions = append(conditions, "phone_number = "+addArg(filter.PhoneNumber))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+addArg(filter.Status))
	}
	if filter.CreatedBefore != nil && filter.BeforeID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("(created_at, id) < (%s, %s)",
			addArg(*filter.CreatedBefore), addArg(filter.BeforeID)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(projectColumns)
	sb.WriteString(" FROM projects")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ")
	sb.WriteString(addArg(limit))

	var rows []projectRow
	if err := pgxscan.Select(ctx, r.db, &rows, sb.String(), args...); err != nil {
		r.logger.Error("Failed to list projects", zap.Any("filter", filter), zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := make([]models.Project, 0, len(rows))
	for i := range rows {
		project, err := rows[i].toModel()
		if err != nil {
			r.logger.Error("Failed to decode project row", zap.String("projectID", rows[i].ID.String()), zap.Error(err))
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, nil
}

// Update сохраняет изменяемые поля заказа. UpdatedAt берется из базы.
func (r *pgProjectRepository) Update(ctx context.Context, project *models.Project) error {
	normalizeCollections(project)
	logFields := []zap.Field{zap.String("projectID", project.ID.String()), zap.String("status", string(project.Status))}

	docs, err := encodeProjectJSON(project)
	if err != nil {
		return err
	}

	var updatedAt time.Time
	err = r.db.QueryRow(ctx, updateProjectQuery,
		project.ID,
		project.PhoneNumber,
		project.ClientID,
		project.Title,
		project.Description,
		docs.requirements,
		project.TechStack,
		project.Features,
		docs.timeline,
		docs.budget,
		docs.documentation,
		string(project.Status),
		docs.conversation,
		project.AssignedTeam,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Project not found for update", logFields...)
			return models.ErrProjectNotFound
		}
		r.logger.Error("Failed to update project", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update project %s: %w", project.ID, err)
	}
	project.UpdatedAt = updatedAt
	r.logger.Debug("Project updated", logFields...)
	return nil
}

// normalizeCollections заменяет nil-срезы пустыми, чтобы не писать NULL в NOT NULL колонки.
func normalizeCollections(p *models.Project) {
	if p.Requirements == nil {
		p.Requirements = []models.Requirement{}
	}
	if p.TechStack == nil {
		p.TechStack = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.ConversationHistory == nil {
		p.ConversationHistory = []models.ConversationMessage{}
	}
	if p.AssignedTeam == nil {
		p.AssignedTeam = []string{}
	}
}

// projectRow - строка таблицы projects. JSONB-колонки читаются как сырые байты.
type projectRow struct {
	ID                  uuid.UUID `db:"id"`
	PhoneNumber         string    `db:"phone_number"`
	ClientID            *string   `db:"client_id"`
	Title               string    `db:"title"`
	Description         string    `db:"description"`
	Requirements        []byte    `db:"requirements"`
	TechStack           []string  `db:"tech_stack"`
	Features            []string  `db:"features"`
	Timeline            []byte    `db:"timeline"`
	Budget              []byte    `db:"budget"`
	Documentation       []byte    `db:"documentation"`
	Status              string    `db:"status"`
	ConversationHistory []byte    `db:"conversation_history"`
	AssignedTeam        []string  `db:"assigned_team"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (row *projectRow) toModel() (*models.Project, error) {
	p := &models.Project{
		ID:           row.ID,
		PhoneNumber:  row.PhoneNumber,
		ClientID:     row.ClientID,
		Title:        row.Title,
		Description:  row.Description,
		TechStack:    row.TechStack,
		Features:     row.Features,
		Status:       models.ProjectStatus(row.Status),
		AssignedTeam: row.AssignedTeam,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	decode := func(column string, data []byte, target interface{}) error {
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("failed to decode %s of project %s: %w", column, row.ID, err)
		}
		return nil
	}
	if err := decode("requirements", row.Requirements, &p.Requirements); err != nil {
		return nil, err
	}
	if err := decode("timeline", row.Timeline, &p.Timeline); err != nil {
		return nil, err
	}
	if err := decode("budget", row.Budget, &p.Budget); err != nil {
		return nil, err
	}
	if err := decode("documentation", row.Documentation, &p.Documentation); err != nil {
		return nil, err
	}
	if err := decode("conversation_history", row.ConversationHistory, &p.ConversationHistory); err != nil {
		return nil, err
	}
	normalizeCollections(p)
	return p, nil
}

type projectJSON struct {
	requirements  []byte
	timeline      []byte
	budget        []byte
	documentation []byte
	conversation  []byte
}

func encodeProjectJSON(p *models.Project) (projectJSON, error) {
	var (
		out projectJSON
		err error
	)
	if out.requirements, err = json.Marshal(p.Requirements); err != nil {
		return out, fmt.Errorf("failed to marshal requirements: %w", err)
	}
	if out.timeline, err = json.Marshal(p.Timeline); err != nil {
		return out, fmt.Errorf("failed to marshal timeline: %w", err)
	}
	if out.budget, err = json.Marshal(p.Budget); err != nil {
		return out, fmt.Errorf("failed to marshal budget: %w", err)
	}
	if p.Documentation != nil {
		if out.documentation, err = json.Marshal(p.Documentation); err != nil {
			return out, fmt.Errorf("failed to marshal documentation: %w", err)
		}
	}
	if out.conversation, err = json.Marshal(p.ConversationHistory); err != nil {
		return out, fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	return out, nil
}
