package mocks

import (
	"context"

	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProjectRepository is a mock type for the ProjectRepository type
type MockProjectRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, project
func (_m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	ret := _m.Called(ctx, project)
	if rf, ok := ret.Get(0).(func(context.Context, *models.Project) error); ok {
		return rf(ctx, project)
	}
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	ret := _m.Called(ctx, id)
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.Project); ok {
		return rf(ctx, id), ret.Error(1)
	}
	return projectResult(ret)
}

// GetLatestByPhone provides a mock function with given fields: ctx, phoneNumber
func (_m *MockProjectRepository) GetLatestByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	ret := _m.Called(ctx, phoneNumber)
	return projectResult(ret)
}

// FindActiveByPhone provides a mock function with given fields: ctx, phoneNumber
func (_m *MockProjectRepository) FindActiveByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	ret := _m.Called(ctx, phoneNumber)
	return projectResult(ret)
}

// List provides a mock function with given fields: ctx, filter
func (_m *MockProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	ret := _m.Called(ctx, filter)

	var r0 []models.Project
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Project)
	}
	return r0, ret.Error(1)
}

// Update provides a mock function with given fields: ctx, project
func (_m *MockProjectRepository) Update(ctx context.Context, project *models.Project) error {
	ret := _m.Called(ctx, project)
	if rf, ok := ret.Get(0).(func(context.Context, *models.Project) error); ok {
		return rf(ctx, project)
	}
	return ret.Error(0)
}

func projectResult(ret mock.Arguments) (*models.Project, error) {
	var r0 *models.Project
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Project)
	}
	return r0, ret.Error(1)
}

// NewMockProjectRepository creates a new instance of MockProjectRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProjectRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProjectRepository {
	m := &MockProjectRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.ProjectRepository = (*MockProjectRepository)(nil)
