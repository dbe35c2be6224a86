package spvbuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"

	"github.com/mitchellh/go-homedir"
	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

type execJob struct {
	dir  string
	bin  string
	args []string
	out  io.Writer
}

func (j *execJob) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, j.bin, j.args...)
	cmd.Dir = j.dir
	cmd.Stdout = j.out
	cmd.Stderr = j.out
	osutil.CmdCopyEnv(cmd, "HOME")
	osutil.CmdCopyEnv(cmd, "PATH")
	osutil.CmdCopyEnv(cmd, "VULKAN_SDK")
	return cmd
}

// glslc runs an external compiler with the glslc command line convention:
// <bin> [flags...] <src> -o <out>
type glslc struct {
	bin string
}

func newGLSLC(bin string) (*glslc, error) {
	p, err := homedir.Expand(bin)
	if err != nil {
		return nil, errcode.Annotatef(err, "expand compiler path %q", bin)
	}
	return &glslc{bin: p}, nil
}

func glslcArgs(job *compileJob) []string {
	var args []string
	args = append(args, job.flags...)
	return append(args, job.src, "-o", job.out)
}

func (c *glslc) compile(ctx context.Context, job *compileJob) error {
	out := new(bytes.Buffer)
	j := &execJob{
		bin:  c.bin,
		args: glslcArgs(job),
		out:  out,
	}
	if err := j.command(ctx).Run(); err != nil {
		return &CompileError{
			Source:   job.name,
			Artifact: job.out,
			Output:   out.Bytes(),
			Err:      runError(c.bin, err),
		}
	}
	return nil
}

func runError(bin string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("compiler %q not found: %w", bin, err)
	}
	return fmt.Errorf("%s: %w", bin, err)
}
