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
)

// makeRelPath makes a path that is under p.
// It cannot escape p.
func makeRelPath(p, f string) string {
	f = path.Clean(path.Join("/", f))
	return strings.TrimPrefix(path.Join("/", p, f), "/")
}

// cleanSourceName normalizes a declared source name into a slash separated
// path relative to the source directory. It returns false if the name is
// empty or tries to escape the directory.
func cleanSourceName(name string) (string, bool) {
	if name == "" || path.IsAbs(name) {
		return "", false
	}
	c := path.Clean(name)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", false
	}
	return makeRelPath("", c), true
}

// artifactName is the naming function of the build: the artifact of a
// source is the source's name with the suffix appended.
func artifactName(src, suffix string) string { return src + suffix }
