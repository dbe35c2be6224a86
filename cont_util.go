package spvbuild

import (
	"fmt"
	"io"
	"path"

	"shanhu.io/virgo/dock"
)

func exitError(exit int) error {
	if exit == 0 {
		return nil
	}
	return fmt.Errorf("exit with code: %d", exit)
}

func execError(ret int, err error) error {
	if err != nil {
		return err
	}
	return exitError(ret)
}

func contExec(cont *dock.Cont, dir string, args []string, out io.Writer) error {
	return execError(cont.ExecWithSetup(&dock.ExecSetup{
		Cmd:        args,
		WorkingDir: dir,
		Stdout:     out,
		Stderr:     out,
	}))
}

func linuxPathJoin(parts ...string) string {
	return path.Join(parts...)
}
