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

// Default settings.
const (
	DefaultSourceDir = "data/shaders"
	DefaultCompiler  = "glslc"
	DefaultSuffix    = ".spv"
)

// DefaultSources is the declared source list of the default shader set.
var DefaultSources = []string{"default.vert", "default.frag"}

// Config provides the configuration to start a builder.
type Config struct {
	SourceDir string   // Source directory
	OutputDir string   // Output directory; same as SourceDir when empty
	Compiler  string   // External compiler executable
	Sources   []string // Ordered list of source file names

	Suffix string // Artifact suffix, ".spv" when empty
	Flags  string // Extra compiler flags, in shell word syntax
	Docker string // Runs the compiler in this docker image when set
	Cache  string // Path to the build stamp cache; disabled when empty
	Jobs   int    // Max concurrent compilations
}

// DefaultConfig returns the configuration of the default shader set.
func DefaultConfig() *Config {
	return &Config{
		SourceDir: DefaultSourceDir,
		Compiler:  DefaultCompiler,
		Sources:   append([]string(nil), DefaultSources...),
		Suffix:    DefaultSuffix,
		Jobs:      1,
	}
}

func (c *Config) outputDir() string {
	if c.OutputDir == "" {
		return c.SourceDir
	}
	return c.OutputDir
}

func (c *Config) suffix() string {
	if c.Suffix == "" {
		return DefaultSuffix
	}
	return c.Suffix
}

func (c *Config) compiler() string {
	if c.Compiler == "" {
		return DefaultCompiler
	}
	return c.Compiler
}

func (c *Config) jobs() int {
	if c.Jobs <= 0 {
		return 1
	}
	return c.Jobs
}
