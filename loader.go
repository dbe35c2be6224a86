package spvbuild

import (
	"path/filepath"

	"shanhu.io/text/lexing"
)

type loader struct {
	// Registered shader sets by name.
	sets map[string]*ShaderSet

	// Artifact paths, mapped to the shader set that produces it.
	outs map[string]*ShaderSet

	errList *lexing.ErrorList
}

func newLoader() *loader {
	return &loader{
		sets:    make(map[string]*ShaderSet),
		outs:    make(map[string]*ShaderSet),
		errList: lexing.NewErrorList(),
	}
}

func (l *loader) register(s *ShaderSet) {
	if p, ok := l.sets[s.Name]; ok {
		l.errList.Errorf(s.pos, "shader set %q redeclared", s.Name)
		if p.pos != nil {
			l.errList.Errorf(p.pos, "  previously defined here")
		}
		return
	}
	l.sets[s.Name] = s

	b := NewBuilder(s.Config)
	for _, out := range b.Artifacts() {
		out = filepath.Clean(out)
		if p, ok := l.outs[out]; ok {
			if p != s {
				l.errList.Errorf(
					s.pos, "artifact %q redeclared by %q", out, s.Name,
				)
				if p.pos != nil {
					l.errList.Errorf(p.pos, "  previously defined here")
				}
			}
			continue
		}
		l.outs[out] = s
	}
}

// LoadBuildFile reads the shader sets declared in a build file. Settings in
// base that a shader set does not declare, such as the compiler, are
// inherited.
func LoadBuildFile(f string, base *Config) ([]*ShaderSet, []*lexing.Error) {
	sets, errs := readBuildFile(f, base)
	if errs != nil {
		return nil, errs
	}

	l := newLoader()
	for _, s := range sets {
		l.register(s)
	}
	if errs := l.errList.Errs(); errs != nil {
		return nil, errs
	}
	return sets, nil
}
