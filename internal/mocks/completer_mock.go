package mocks

import (
	"context"

	"orderdoc-server/pkg/ai"

	"github.com/stretchr/testify/mock"
)

// MockCompleter is a mock type for the ai.Completer type
type MockCompleter struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, messages, opts
func (_m *MockCompleter) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (*ai.Completion, error) {
	ret := _m.Called(ctx, messages, opts)

	var r0 *ai.Completion
	if rf, ok := ret.Get(0).(func(context.Context, []ai.Message, ai.Options) *ai.Completion); ok {
		r0 = rf(ctx, messages, opts)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.Completion)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, []ai.Message, ai.Options) error); ok {
		r1 = rf(ctx, messages, opts)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockCompleter creates a new instance of MockCompleter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockCompleter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCompleter {
	m := &MockCompleter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ai.Completer = (*MockCompleter)(nil)
