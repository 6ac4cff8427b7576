package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/mgriffes/jobforge/pkg/pipeline"
)

// Executor runs a single pipeline task to completion and returns its
// captured output.
type Executor interface {
	Run(ctx context.Context, task *pipeline.Task) (string, error)
}

// ShellExecutor runs task commands through `sh -c` with the task's env
// entries appended to the daemon environment. Stdout and stderr are
// captured interleaved. Context cancellation kills the process.
type ShellExecutor struct{}

func (ShellExecutor) Run(ctx context.Context, task *pipeline.Task) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", task.Run)
	cmd.Env = append(os.Environ(), taskEnv(task)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

// taskEnv renders the task's env map in key order.
func taskEnv(task *pipeline.Task) []string {
	if len(task.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(task.Env))
	for k := range task.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, task.Env[k]))
	}
	return env
}
