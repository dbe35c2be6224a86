package spvbuild

import (
	"context"
)

// compileJob is a single compiler invocation.
type compileJob struct {
	name  string   // Declared source name.
	src   string   // Source file path.
	out   string   // Artifact file path.
	flags []string // Extra compiler flags.
}

// compiler turns one source file into one artifact file.
type compiler interface {
	compile(ctx context.Context, job *compileJob) error
}
