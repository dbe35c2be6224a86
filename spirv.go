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
	"encoding/binary"
	"os"

	"shanhu.io/misc/errcode"
)

const (
	spirvMagic       = 0x07230203
	spirvHeaderWords = 5
)

// checkSPIRV checks that bs looks like a SPIR-V module: a stream of 32-bit
// words that starts with the magic number, in either byte order.
func checkSPIRV(bs []byte) error {
	if len(bs)%4 != 0 {
		return errcode.InvalidArgf(
			"size %d is not a multiple of 4", len(bs),
		)
	}
	if len(bs) < spirvHeaderWords*4 {
		return errcode.InvalidArgf("too short for a header: %d bytes", len(bs))
	}
	if binary.LittleEndian.Uint32(bs) == spirvMagic {
		return nil
	}
	if binary.BigEndian.Uint32(bs) == spirvMagic {
		return nil
	}
	return errcode.InvalidArgf(
		"bad magic number 0x%08x", binary.LittleEndian.Uint32(bs),
	)
}

// Check checks that every artifact is built and is a SPIR-V module.
func (b *Builder) Check() error {
	rules, err := b.rules()
	if err != nil {
		return err
	}
	for _, r := range rules {
		f := b.env.out(r.out)
		bs, err := os.ReadFile(f)
		if err != nil {
			if os.IsNotExist(err) {
				return &ArtifactMissingError{Artifact: f}
			}
			return errcode.Annotatef(err, "read %q", f)
		}
		if err := checkSPIRV(bs); err != nil {
			return errcode.Annotatef(err, "check %q", f)
		}
	}
	return nil
}
