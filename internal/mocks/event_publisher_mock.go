package mocks

import (
	"context"

	"orderdoc-server/internal/interfaces"
	"orderdoc-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockDocumentationEventPublisher is a mock type for the DocumentationEventPublisher type
type MockDocumentationEventPublisher struct {
	mock.Mock
}

// PublishDocumentationGenerated provides a mock function with given fields: ctx, event
func (_m *MockDocumentationEventPublisher) PublishDocumentationGenerated(ctx context.Context, event models.DocumentationGeneratedEvent) error {
	ret := _m.Called(ctx, event)
	return ret.Error(0)
}

// NewMockDocumentationEventPublisher creates a new instance of MockDocumentationEventPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockDocumentationEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockDocumentationEventPublisher {
	m := &MockDocumentationEventPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ interfaces.DocumentationEventPublisher = (*MockDocumentationEventPublisher)(nil)
