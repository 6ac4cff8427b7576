package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mgriffes/jobforge/internal/services"
	"github.com/mgriffes/jobforge/pkg/pipeline"
)

var _ = Describe("ShellExecutor", func() {
	var (
		ctx  context.Context
		exec services.ShellExecutor
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	// Given a task with env entries
	// When it runs
	// Then the command should see the merged environment
	It("should run the command with the task env", func() {
		// Arrange
		task := &pipeline.Task{
			Name: "greet",
			Run:  `echo "$GREETING world"`,
			Env:  map[string]string{"GREETING": "hello"},
		}

		// Act
		out, err := exec.Run(ctx, task)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("hello world\n"))
	})

	// Given a command writing to both streams
	// When it runs
	// Then stdout and stderr should be captured in order
	It("should capture stdout and stderr interleaved", func() {
		// Arrange
		task := &pipeline.Task{Name: "noisy", Run: `echo out; echo err 1>&2`}

		// Act
		out, err := exec.Run(ctx, task)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("out\nerr\n"))
	})

	// Given a command exiting non-zero
	// When it runs
	// Then the exit error and partial output should both surface
	It("should return the exit error with captured output", func() {
		// Arrange
		task := &pipeline.Task{Name: "broken", Run: `echo partial; exit 3`}

		// Act
		out, err := exec.Run(ctx, task)

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal("exit status 3"))
		Expect(out).To(Equal("partial\n"))
	})

	// Given a long-running command
	// When the context is cancelled
	// Then the process should be killed promptly
	It("should kill the process on context cancellation", func() {
		// Arrange
		task := &pipeline.Task{Name: "stuck", Run: `sleep 10`}
		shortCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		// Act
		start := time.Now()
		_, err := exec.Run(shortCtx, task)

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})
})
