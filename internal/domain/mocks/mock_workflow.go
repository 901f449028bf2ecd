// Package mocks provides testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"signfinder.dev/pkg/signfinder/internal/domain"
	m "signfinder.dev/pkg/signfinder/internal/model"
)

// MockWorkflow is a mock type for the domain.Workflow type.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*MockWorkflow)(nil)

// NewMockWorkflow creates a MockWorkflow that asserts its expectations when
// the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Mock.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// errorCall records a call of method and returns its configured error.
func (_m *MockWorkflow) errorCall(method string, args ...any) error {
	ret := _m.MethodCalled(method, args...)
	if len(ret) == 0 {
		panic("no return value specified for " + method)
	}

	return ret.Error(0)
}

// Load provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Load(ctx context.Context, args domain.LoadArgs) error {
	return _m.errorCall("Load", ctx, args)
}

// Fill provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Fill(ctx context.Context, args domain.FillArgs) error {
	return _m.errorCall("Fill", ctx, args)
}

// Divide provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Divide(ctx context.Context, args domain.DivideArgs) error {
	return _m.errorCall("Divide", ctx, args)
}

// Half provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Half(ctx context.Context, args domain.HalfArgs) error {
	return _m.errorCall("Half", ctx, args)
}

// Restore provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Restore(ctx context.Context, args domain.RestoreArgs) error {
	return _m.errorCall("Restore", ctx, args)
}

// Visualize provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Visualize(ctx context.Context, args domain.VisualizeArgs) error {
	return _m.errorCall("Visualize", ctx, args)
}

// Diff provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Diff(ctx context.Context, args domain.DiffArgs) error {
	return _m.errorCall("Diff", ctx, args)
}

// Export provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Export(ctx context.Context, args domain.ExportArgs) error {
	return _m.errorCall("Export", ctx, args)
}

// Run provides a mock function with given fields: ctx, args
func (_m *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) error {
	return _m.errorCall("Run", ctx, args)
}

// ListFiles provides a mock function with given fields: ctx
func (_m *MockWorkflow) ListFiles(ctx context.Context) error {
	return _m.errorCall("ListFiles", ctx)
}

// ListCommands provides a mock function with given fields: ctx
func (_m *MockWorkflow) ListCommands(ctx context.Context) error {
	return _m.errorCall("ListCommands", ctx)
}

// Close provides a mock function with given fields: ctx
func (_m *MockWorkflow) Close(ctx context.Context) error {
	return _m.errorCall("Close", ctx)
}

// State provides a mock function with no fields
func (_m *MockWorkflow) State() (m.FileID, m.CommandID) {
	ret := _m.Called()
	if len(ret) < 2 {
		panic("no return value specified for State")
	}

	var (
		r0 m.FileID
		r1 m.CommandID
	)

	if v, ok := ret.Get(0).(m.FileID); ok {
		r0 = v
	}

	if v, ok := ret.Get(1).(m.CommandID); ok {
		r1 = v
	}

	return r0, r1
}

// SessionID provides a mock function with no fields
func (_m *MockWorkflow) SessionID() string {
	ret := _m.Called()
	if len(ret) == 0 {
		panic("no return value specified for SessionID")
	}

	return ret.String(0)
}
