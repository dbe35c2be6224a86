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
	"os"
	"path"
	"path/filepath"

	"shanhu.io/virgo/dock"
)

type env struct {
	srcDir string
	outDir string
	suffix string

	dock *dock.Client
}

func newEnv(config *Config) *env {
	return &env{
		srcDir: config.SourceDir,
		outDir: config.outputDir(),
		suffix: config.suffix(),
	}
}

func (e *env) prepareOut(ps ...string) (string, error) {
	p := e.out(ps...)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return p, nil
}

func (e *env) out(ps ...string) string {
	if len(ps) == 0 {
		return e.outDir
	}
	p := path.Join(ps...)
	return filepath.Join(e.outDir, filepath.FromSlash(p))
}

func (e *env) src(ps ...string) string {
	if len(ps) == 0 {
		return e.srcDir
	}
	p := path.Join(ps...)
	return filepath.Join(e.srcDir, filepath.FromSlash(p))
}

func (e *env) artifact(src string) string {
	return artifactName(src, e.suffix)
}

func (e *env) docker() *dock.Client {
	if e.dock == nil {
		e.dock = dock.NewUnixClient("")
	}
	return e.dock
}
