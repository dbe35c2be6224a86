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
	"log"

	"shanhu.io/misc/errcode"
	"shanhu.io/virgo/dock"
)

// DefaultToolchainImage is the name of the docker image that carries the
// glslc compiler.
const DefaultToolchainImage = "spvbuild/glslc"

// The container idles so that compilers can be executed in it.
const glslcDockerfile = `
FROM alpine
MAINTAINER Shanhu Tech Inc.

RUN apk update
RUN apk add --no-cache shaderc
CMD ["tail", "-f", "/dev/null"]
`

// BuildToolchain builds the docker image that runs the compiler when the
// builder is configured with a docker image.
func (b *Builder) BuildToolchain(name string) error {
	if name == "" {
		name = DefaultToolchainImage
	}
	log.Printf("build toolchain %s", name)

	c := b.env.docker()
	ts := dock.NewTarStream(glslcDockerfile)
	if err := dock.BuildImageStream(c, name, ts); err != nil {
		return errcode.Annotate(err, "build image")
	}

	info, err := dock.InspectImage(c, name)
	if err != nil {
		return errcode.Annotate(err, "inspect built image")
	}
	log.Printf("toolchain %s built: %s", name, info.ID)
	return nil
}
