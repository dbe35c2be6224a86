package spvbuild

// Shaders declares a set of shader sources in a build file. Every source is
// compiled into an artifact named by appending the suffix to its name.
type Shaders struct {
	Name string

	// Source directory, relative to the build file.
	Dir string

	// Output directory, relative to the build file. Same as Dir when empty.
	Out string `json:",omitempty"`

	// The ordered list of source files, relative to Dir.
	Sources []string `json:",omitempty"`

	// Selects more source files by glob patterns under Dir. A pattern
	// ending with "/**" selects all files under a directory.
	Select []string `json:",omitempty"`

	// Ignores source files after selection.
	Ignore []string `json:",omitempty"`

	// Extra compiler flags, in shell word syntax.
	Flags string `json:",omitempty"`

	// Artifact suffix, ".spv" when empty.
	Suffix string `json:",omitempty"`
}
