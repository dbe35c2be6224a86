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
	"bytes"
	"context"
	"path"
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/tarutil"
	"shanhu.io/virgo/dock"
)

// dockerCompiler runs the compiler inside a fresh container for every
// source. The image must stay running without a command, so that the
// compiler can be executed in it.
type dockerCompiler struct {
	env   *env
	image string
	bin   string
}

func newDockerCompiler(env *env, image, bin string) *dockerCompiler {
	return &dockerCompiler{
		env:   env,
		image: image,
		bin:   bin,
	}
}

const contWorkDir = "/spvbuild"

// contJob is a compile job mapped into the container.
type contJob struct {
	src  string // Source path in the container.
	out  string // Artifact path in the container.
	args []string
}

func newContJob(job *compileJob, bin, suffix string) *contJob {
	base := path.Base(filepath.ToSlash(job.name))
	src := linuxPathJoin(contWorkDir, base)
	out := src + suffix

	var args []string
	args = append(args, bin)
	args = append(args, job.flags...)
	args = append(args, src, "-o", out)
	return &contJob{src: src, out: out, args: args}
}

func (c *dockerCompiler) compile(ctx context.Context, job *compileJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cont, err := dock.CreateCont(c.env.docker(), c.image, nil)
	if err != nil {
		return errcode.Annotate(err, "create container")
	}
	defer cont.Drop()

	cj := newContJob(job, c.bin, c.env.suffix)
	ts := tarutil.NewStream()
	ts.AddFile(cj.src, tarutil.ModeMeta(0644), job.src)
	if err := dock.CopyInTarStream(cont, ts, "/"); err != nil {
		return errcode.Annotate(err, "copy source")
	}

	if err := cont.Start(); err != nil {
		return errcode.Annotate(err, "start container")
	}

	out := new(bytes.Buffer)
	if err := contExec(cont, contWorkDir, cj.args, out); err != nil {
		return &CompileError{
			Source:   job.name,
			Artifact: job.out,
			Output:   out.Bytes(),
			Err:      errcode.Annotatef(err, "%s in %s", c.bin, c.image),
		}
	}

	if err := cont.CopyOutFile(cj.out, job.out); err != nil {
		return errcode.Annotatef(err, "copy out %s", cj.out)
	}
	return nil
}
