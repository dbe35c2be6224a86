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
	"log"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonutil"
	"shanhu.io/virgo/dock"
)

// ToolchainSum captures the ID and digest of a toolchain image.
type ToolchainSum struct {
	ID     string
	Digest string
}

func parseRepoTag(s string) (repo, tag string) {
	i := strings.LastIndex(s, ":")
	if i < 0 || strings.Contains(s[i:], "/") {
		return s, "latest"
	}
	return s[:i], s[i+1:]
}

func newToolchainSum(info *dock.ImageInfo, repo, prefer string) *ToolchainSum {
	sum := &ToolchainSum{ID: info.ID}

	prefix := repo + "@"
	var digests []string
	for _, d := range info.RepoDigests {
		if !strings.HasPrefix(d, prefix) {
			continue
		}
		d = strings.TrimPrefix(d, prefix)
		if d == prefer {
			sum.Digest = d
			return sum
		}
		digests = append(digests, d)
	}
	if len(digests) > 0 {
		sum.Digest = digests[0]
	}
	return sum
}

// PullToolchain pulls a prebuilt toolchain image and tags it as name. When
// from is empty, name is pulled. When digest is not empty, the image is
// pulled by digest, and the digest must match.
func (b *Builder) PullToolchain(name, from, digest string) (*ToolchainSum, error) {
	if name == "" {
		name = DefaultToolchainImage
	}
	if from == "" {
		from = name
	}
	repo, tag := parseRepoTag(name)
	srcRepo, srcTag := parseRepoTag(from)

	pullTag := srcTag
	src := srcRepo + ":" + srcTag
	if digest != "" {
		pullTag = digest
		src = fmt.Sprintf("%s@%s", srcRepo, digest)
	}

	log.Printf("pull toolchain %s", src)
	c := b.env.docker()
	if err := dock.PullImage(c, srcRepo, pullTag); err != nil {
		return nil, errcode.Annotate(err, "pull image")
	}
	if !(repo == srcRepo && tag == pullTag) {
		if err := dock.TagImage(c, src, repo, tag); err != nil {
			return nil, errcode.Annotate(err, "tag image")
		}
	}

	info, err := dock.InspectImage(c, repo+":"+tag)
	if err != nil {
		return nil, errcode.Annotate(err, "inspect image")
	}
	sum := newToolchainSum(info, srcRepo, digest)
	if sum.Digest == "" {
		return nil, errcode.Internalf("no digest found for %q", src)
	}
	if digest != "" && sum.Digest != digest {
		return nil, fmt.Errorf(
			"digest mismatch, got %q, want %q", sum.Digest, digest,
		)
	}
	return sum, nil
}

// WriteToolchainSum saves the sum of a pulled toolchain image.
func WriteToolchainSum(f string, sum *ToolchainSum) error {
	return jsonutil.WriteFile(f, sum)
}
