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
	"os"

	"shanhu.io/misc/errcode"
)

// fileStat stamps a source or an artifact file, so that later builds can
// tell if the file has been touched.
type fileStat struct {
	Name     string // Declared source name or artifact name.
	Artifact bool   `json:",omitempty"`
	Size     int64
	ModTime  int64 // In Unix nanoseconds.
	Mode     uint32
}

func (s *fileStat) path(env *env) string {
	if s.Artifact {
		return env.out(s.Name)
	}
	return env.src(s.Name)
}

func statFile(env *env, s *fileStat) (*fileStat, error) {
	f := s.path(env)
	info, err := os.Stat(f)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errcode.NotFoundf("%q not found", f)
		}
		return nil, err
	}
	return &fileStat{
		Name:     s.Name,
		Artifact: s.Artifact,
		Size:     info.Size(),
		ModTime:  info.ModTime().UnixNano(),
		Mode:     uint32(info.Mode()),
	}, nil
}

func statArtifact(env *env, name string) (*fileStat, error) {
	return statFile(env, &fileStat{Name: name, Artifact: true})
}

func statSource(env *env, name string) (*fileStat, error) {
	return statFile(env, &fileStat{Name: name})
}

// unchanged checks if the file still matches the stamp. A file that is
// gone has changed.
func (s *fileStat) unchanged(env *env) (bool, error) {
	cur, err := statFile(env, s)
	if err != nil {
		if errcode.IsNotFound(err) {
			return false, nil
		}
		return false, errcode.Annotate(err, "stat current")
	}
	return *cur == *s, nil
}

// newerOrSame tells if out was modified no earlier than src.
func newerOrSame(out, src *fileStat) bool {
	return out.ModTime >= src.ModTime
}
