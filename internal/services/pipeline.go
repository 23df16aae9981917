package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"agentsplaybook/internal/logger"
	"agentsplaybook/pkg/playbooktypes"
)

// Pipeline runs an ordered chain of named steps over a single chat turn.
// Steps execute strictly in sequence; the first error aborts the remainder of
// the chain and bubbles up as the run's single failure result.
type Pipeline struct {
	steps []playbooktypes.PipelineStep
	log   *log.Logger
}

// NewPipeline creates a pipeline over the given steps, in order.
func NewPipeline(steps ...playbooktypes.PipelineStep) *Pipeline {
	return &Pipeline{
		steps: steps,
		log:   logger.NewStyledLogger("Pipeline"),
	}
}

// Execute threads the pipeline context through every step. Each step returns
// a new context value that replaces the prior one; the context of a failed
// run is returned alongside the error for diagnostics.
func (p *Pipeline) Execute(ctx context.Context, pc playbooktypes.PipelineContext) (playbooktypes.PipelineContext, error) {
	for _, step := range p.steps {
		p.log.Debug("Executing step", "step", step.Name(), "chat_id", pc.ChatID)

		next, err := step.Execute(ctx, pc)
		if err != nil {
			p.log.Error("Step failed", "step", step.Name(), "error", err)
			return pc, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		pc = next
	}
	return pc, nil
}
