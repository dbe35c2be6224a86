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
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/strutil"
)

// listAllFiles lists the regular files under dir, recursively.
func listAllFiles(dir string) ([]string, error) {
	var files []string
	if err := filepath.WalkDir(dir, func(
		p string, d fs.DirEntry, err error,
	) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return files, nil
}

// sourcePicker decides which files selected by glob patterns become
// shader sources.
type sourcePicker struct {
	suffix string
	ignore []string
	picked map[string]bool
}

func newSourcePicker(r *Shaders) (*sourcePicker, error) {
	for _, pat := range r.Ignore {
		if _, err := path.Match(pat, ""); err != nil {
			return nil, errcode.InvalidArgf("bad ignore pattern %q", pat)
		}
	}
	suffix := r.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &sourcePicker{
		suffix: suffix,
		ignore: r.Ignore,
		picked: make(map[string]bool),
	}, nil
}

func (p *sourcePicker) ignored(name string) bool {
	if strings.HasSuffix(name, p.suffix) { // An artifact.
		return true
	}
	for _, pat := range p.ignore {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// glob expands one select pattern into matching file paths.
func glob(dir, sel string) ([]string, error) {
	if sub, ok := strings.CutSuffix(sel, "/**"); ok {
		files, err := listAllFiles(filepath.Join(dir, filepath.FromSlash(sub)))
		if err != nil {
			return nil, errcode.Annotatef(err, "list files of %q", sel)
		}
		return files, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(sel)))
	if err != nil {
		return nil, errcode.Annotatef(err, "glob %q", sel)
	}
	return matches, nil
}

// selectSources returns the source list of a shader set: the explicit
// sources in declared order, followed by the selected ones in sorted order.
func selectSources(dir string, r *Shaders) ([]string, error) {
	declared := make(map[string]bool)
	var sources []string
	for _, s := range r.Sources {
		if !declared[s] {
			declared[s] = true
			sources = append(sources, s)
		}
	}

	p, err := newSourcePicker(r)
	if err != nil {
		return nil, err
	}
	for _, sel := range r.Select {
		matches, err := glob(dir, sel)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%q select no files", sel)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(dir, m)
			if err != nil {
				return nil, errcode.Annotatef(err, "relative path of %q", m)
			}
			name := filepath.ToSlash(rel)
			if !declared[name] && !p.ignored(name) {
				p.picked[name] = true
			}
		}
	}
	return append(sources, strutil.SortedList(p.picked)...), nil
}
