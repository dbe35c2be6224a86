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
	"fmt"
	"os"
	"strings"
)

// SourceMissingError is returned when a declared source file does not exist
// in the source directory.
type SourceMissingError struct {
	Source string // Declared source name.
	Path   string // Filesystem path that was checked.
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("source %q not found: %s", e.Source, e.Path)
}

// Is makes errors.Is(err, os.ErrNotExist) hold for missing sources.
func (e *SourceMissingError) Is(target error) bool {
	return target == os.ErrNotExist
}

// CompileError is returned when the compiler fails on a source.
type CompileError struct {
	Source   string
	Artifact string

	// Output is the diagnostic output of the compiler, verbatim.
	Output []byte

	Err error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("compile %q: %s", e.Source, e.Err)
	out := strings.TrimSpace(string(e.Output))
	if out == "" {
		return msg
	}
	return msg + "\n" + out
}

func (e *CompileError) Unwrap() error { return e.Err }

// OutputDirError is returned when the output directory cannot be created
// or written.
type OutputDirError struct {
	Dir string
	Err error
}

func (e *OutputDirError) Error() string {
	return fmt.Sprintf("output directory %q: %s", e.Dir, e.Err)
}

func (e *OutputDirError) Unwrap() error { return e.Err }

// ArtifactMissingError is returned by checks when an artifact has not been
// built.
type ArtifactMissingError struct {
	Artifact string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("artifact %q not built", e.Artifact)
}

func (e *ArtifactMissingError) Is(target error) bool {
	return target == os.ErrNotExist
}
