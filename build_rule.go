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
	"path"
	"strings"

	"shanhu.io/misc/errcode"
)

const ruleShader = "shader"

type buildRuleMeta struct {
	name string // Source name.
	out  string // Artifact name.

	// digest captures all non-source input of the compilation: the
	// compiler, its flags and the naming suffix.
	digest string
}

// buildRule compiles one source into one artifact.
type buildRule struct {
	src      string
	out      string
	flags    []string
	compiler compiler
	action   *compileAction
}

func newBuildRule(env *env, src string, c compiler, a *compileAction) *buildRule {
	return &buildRule{
		src:      src,
		out:      env.artifact(src),
		flags:    a.Flags,
		compiler: c,
		action:   a,
	}
}

func (r *buildRule) meta() (*buildRuleMeta, error) {
	d, err := makeDigest(ruleShader, r.src, r.action)
	if err != nil {
		return nil, errcode.Annotate(err, "digest")
	}
	return &buildRuleMeta{
		name:   r.src,
		out:    r.out,
		digest: d,
	}, nil
}

// sourceLang returns the shading language of a source, judged by its file
// extension.
func sourceLang(src string) string {
	if strings.ToLower(path.Ext(src)) == ".wgsl" {
		return langWGSL
	}
	return langGLSL
}

const (
	langGLSL = "glsl"
	langWGSL = "wgsl"
)
