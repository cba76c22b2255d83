// Package pipeline chains the compilation stages. Each stage reads what the
// previous one left in the PipelineContext.
package pipeline

import (
	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/bytecode"
)

// PipelineContext carries one compilation unit through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string
	AstRoot    *ast.Root
	Binary     *bytecode.Binary
	Err        error
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{SourceCode: source}
}

// Processor is a single stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline, stopping at the first stage that sets Err.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		if ctx.Err != nil {
			break
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}
