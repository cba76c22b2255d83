package parser

import (
	"github.com/funvibe/ember/internal/lexer"
	"github.com/funvibe/ember/internal/pipeline"
)

// ParserProcessor is the parse stage of the compilation pipeline.
type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	root, err := New(lexer.New(ctx.SourceCode)).ParseProgram()
	if err != nil {
		ctx.Err = withFile(err, ctx.FilePath)
		return ctx
	}
	root.File = ctx.FilePath
	ctx.AstRoot = root
	return ctx
}
