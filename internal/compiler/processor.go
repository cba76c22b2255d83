package compiler

import (
	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/parser"
	"github.com/funvibe/ember/internal/pipeline"
)

// CompilerProcessor is the code generation stage of the pipeline.
type CompilerProcessor struct{}

func (cp *CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		return ctx
	}
	bin, err := Generate(ctx.AstRoot, ctx.FilePath)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Binary = bin
	return ctx
}

// CompileSource parses and compiles src. name labels the Binary and any
// error positions.
func CompileSource(name, src string) (*bytecode.Binary, error) {
	ctx := pipeline.NewPipelineContext(src)
	ctx.FilePath = name
	ctx = pipeline.New(&parser.ParserProcessor{}, &CompilerProcessor{}).Run(ctx)
	if ctx.Err != nil {
		return nil, ctx.Err
	}
	return ctx.Binary, nil
}
