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

package spvbuildbin

import (
	"os"
	"strings"

	"shanhu.io/misc/subcmd"
)

func cmd() *subcmd.List {
	c := subcmd.New()
	c.Add("build", "builds shader artifacts", cmdBuild)
	c.Add("shaders", "builds shader artifacts, same as build", cmdBuild)
	c.Add("clean", "removes shader artifacts", cmdClean)
	c.Add("check", "checks that artifacts are valid SPIR-V", cmdCheck)
	c.Add("manifest", "writes the artifact manifest", cmdManifest)
	c.Add("watch", "rebuilds shaders when sources change", cmdWatch)
	c.Add("toolchain", "builds the compiler docker image", cmdToolchain)
	return c
}

// withDefaultCmd inserts the build command when args start with flags or
// have no command at all.
func withDefaultCmd(args []string) []string {
	if len(args) == 0 {
		return args
	}
	if len(args) > 1 {
		first := args[1]
		if first == "-h" || !strings.HasPrefix(first, "-") {
			return args
		}
	}
	ret := []string{args[0], "build"}
	return append(ret, args[1:]...)
}

// Main is the entrance for the spvbuild binary. It builds when no command
// is given.
func Main() {
	if ret := cmd().Run(withDefaultCmd(os.Args)); ret != 0 {
		os.Exit(ret)
	}
}
