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
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonutil"
)

// ManifestEntry records a built artifact.
type ManifestEntry struct {
	Source   string
	Artifact string
	Size     int64
	SHA256   string
}

func fileSHA256(f string) (string, int64, error) {
	file, err := os.Open(f)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	h := sha256.New()
	n, err := io.Copy(h, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Manifest lists the artifacts with their checksums. All artifacts must
// have been built.
func (b *Builder) Manifest() ([]*ManifestEntry, error) {
	rules, err := b.rules()
	if err != nil {
		return nil, err
	}

	var entries []*ManifestEntry
	for _, r := range rules {
		f := b.env.out(r.out)
		sum, size, err := fileSHA256(f)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &ArtifactMissingError{Artifact: f}
			}
			return nil, errcode.Annotatef(err, "checksum %q", f)
		}
		entries = append(entries, &ManifestEntry{
			Source:   b.env.src(r.src),
			Artifact: f,
			Size:     size,
			SHA256:   sum,
		})
	}
	return entries, nil
}

// WriteManifest writes the manifest of artifacts into a JSON file.
func WriteManifest(f string, entries []*ManifestEntry) error {
	return jsonutil.WriteFile(f, entries)
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(f string) ([]*ManifestEntry, error) {
	var entries []*ManifestEntry
	if err := jsonutil.ReadFile(f, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
