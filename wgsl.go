// Copyright (C) 2022  Shanhu Tech Inc.
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, either version 3 of the License, or (at your
// option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
// for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package spvbuild

import (
	"context"
	"os"

	"github.com/gogpu/naga"
	"shanhu.io/misc/errcode"
)

const builtinWGSL = "builtin:naga"

// wgslCompiler compiles WGSL sources in process.
type wgslCompiler struct {
	opts naga.CompileOptions
}

func newWGSLCompiler(flags []string) *wgslCompiler {
	opts := naga.DefaultOptions()
	for _, f := range flags {
		if f == "-g" {
			opts.Debug = true
		}
	}
	return &wgslCompiler{opts: opts}
}

func (c *wgslCompiler) compile(ctx context.Context, job *compileJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(job.src)
	if err != nil {
		return errcode.Annotatef(err, "read %q", job.name)
	}

	bs, err := naga.CompileWithOptions(string(src), c.opts)
	if err != nil {
		return &CompileError{
			Source:   job.name,
			Artifact: job.out,
			Output:   []byte(err.Error()),
			Err:      errcode.InvalidArgf("wgsl compile failed"),
		}
	}

	if err := os.WriteFile(job.out, bs, 0644); err != nil {
		return errcode.Annotatef(err, "write %q", job.out)
	}
	return nil
}
