package mocks

import (
	"context"

	"orderdoc-server/pkg/ai"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock type for the ai.Provider type
type MockProvider struct {
	mock.Mock
}

// Name provides a mock function with given fields:
func (_m *MockProvider) Name() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}
	return r0
}

// Complete provides a mock function with given fields: ctx, messages, opts
func (_m *MockProvider) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	ret := _m.Called(ctx, messages, opts)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, []ai.Message, ai.Options) string); ok {
		r0 = rf(ctx, messages, opts)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []ai.Message, ai.Options) error); ok {
		r1 = rf(ctx, messages, opts)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockProvider creates a new instance of MockProvider. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ai.Provider = (*MockProvider)(nil)
