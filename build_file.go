package spvbuild

import (
	"path/filepath"

	"shanhu.io/misc/jsonx"
	"shanhu.io/text/lexing"
)

// BuildFileName is the default name of the build file.
const BuildFileName = "BUILD.spv"

const ruleShaders = "shaders"

func makeBuildFileNode(t string) interface{} {
	switch t {
	case ruleShaders:
		return new(Shaders)
	}
	return nil
}

// ShaderSet is a named set of shaders declared in a build file.
type ShaderSet struct {
	Name   string
	Config *Config

	pos *lexing.Pos
}

func newShaderSet(dir string, r *Shaders, base *Config) (*ShaderSet, error) {
	srcDir := filepath.Join(dir, filepath.FromSlash(r.Dir))
	sources, err := selectSources(srcDir, r)
	if err != nil {
		return nil, err
	}

	config := new(Config)
	if base != nil {
		*config = *base
	}
	config.SourceDir = srcDir
	config.OutputDir = ""
	if r.Out != "" {
		config.OutputDir = filepath.Join(dir, filepath.FromSlash(r.Out))
	}
	config.Sources = sources
	if r.Suffix != "" {
		config.Suffix = r.Suffix
	}
	if r.Flags != "" {
		if config.Flags == "" {
			config.Flags = r.Flags
		} else {
			config.Flags = r.Flags + " " + config.Flags
		}
	}

	return &ShaderSet{
		Name:   r.Name,
		Config: config,
	}, nil
}

func readBuildFile(f string, base *Config) ([]*ShaderSet, []*lexing.Error) {
	entries, errs := jsonx.ReadSeriesFile(f, makeBuildFileNode)
	if errs != nil {
		return nil, errs
	}

	dir := filepath.Dir(f)
	errList := lexing.NewErrorList()

	var sets []*ShaderSet
	for _, r := range entries {
		switch v := r.V.(type) {
		case *Shaders:
			if v.Name == "" {
				errList.Errorf(r.Pos, "shader set has no name")
				continue
			}
			set, err := newShaderSet(dir, v, base)
			if err != nil {
				errList.Add(&lexing.Error{Pos: r.Pos, Err: err})
				continue
			}
			set.pos = r.Pos
			sets = append(sets, set)
		default:
			errList.Errorf(r.Pos, "unknown type: %q", r.Type)
		}
	}

	if errs := errList.Errs(); errs != nil {
		return nil, errs
	}
	return sets, nil
}
