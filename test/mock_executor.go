package test

import (
	"context"

	"github.com/mgriffes/jobforge/internal/services"
	"github.com/mgriffes/jobforge/pkg/pipeline"
)

// MockExecutor implements services.Executor for testing.
type MockExecutor struct {
	RunFn func(ctx context.Context, task *pipeline.Task) (string, error)
}

// Run delegates to RunFn. When RunFn is unset the task succeeds with
// "ran <name>" as its output.
func (m *MockExecutor) Run(ctx context.Context, task *pipeline.Task) (string, error) {
	if m.RunFn == nil {
		return "ran " + task.Name, nil
	}
	return m.RunFn(ctx, task)
}

// NewMockExecutor creates a new MockExecutor whose tasks all succeed.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// Ensure MockExecutor implements services.Executor.
var _ services.Executor = (*MockExecutor)(nil)
