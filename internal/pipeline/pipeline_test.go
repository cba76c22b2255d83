package pipeline

import (
	"errors"
	"testing"
)

func TestRunStopsAtFirstError(t *testing.T) {
	var calls []string
	stage := func(name string, fail bool) Processor {
		return ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
			calls = append(calls, name)
			if fail {
				ctx.Err = errors.New(name + " failed")
			}
			return ctx
		})
	}

	ctx := New(stage("a", false), stage("b", true), stage("c", false)).Run(NewPipelineContext("src"))

	if ctx.Err == nil || ctx.Err.Error() != "b failed" {
		t.Fatalf("Err = %v, want b failed", ctx.Err)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("stages run = %v, want [a b]", calls)
	}
}

func TestRunPassesContextThrough(t *testing.T) {
	ctx := New(ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
		ctx.FilePath = "set.em"
		return ctx
	})).Run(NewPipelineContext("x"))
	if ctx.FilePath != "set.em" || ctx.SourceCode != "x" {
		t.Errorf("unexpected context %+v", ctx)
	}
}
