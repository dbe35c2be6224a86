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
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"shanhu.io/misc/errcode"

	_ "modernc.org/sqlite" // sqlite driver
)

var errNotFoundInCache = errors.New("not found in cache")

// buildCache records how every artifact was built, keyed by the artifact's
// path.
type buildCache struct {
	db *sql.DB
}

// built is the record of one compilation.
type built struct {
	Digest string
	Src    *fileStat
	Out    *fileStat
}

func newBuildCache(f string) (*buildCache, error) {
	if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
		return nil, errcode.Annotate(err, "make cache dir")
	}

	db, err := sql.Open("sqlite", f)
	if err != nil {
		return nil, errcode.Annotate(err, "open cache")
	}
	db.SetMaxOpenConns(1)

	const q = `create table if not exists built (
		artifact text primary key,
		digest text not null,
		record text not null
	)`
	if _, err := db.Exec(q); err != nil {
		db.Close()
		return nil, errcode.Annotate(err, "create table")
	}
	return &buildCache{db: db}, nil
}

func (c *buildCache) get(artifact string) (*built, error) {
	row := c.db.QueryRow(
		`select record from built where artifact=?`, artifact,
	)
	var record string
	if err := row.Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, errNotFoundInCache
		}
		return nil, err
	}

	b := new(built)
	if err := json.Unmarshal([]byte(record), b); err != nil {
		return nil, errcode.Annotate(err, "unmarshal record")
	}
	return b, nil
}

func (c *buildCache) put(artifact string, b *built) error {
	bs, err := json.Marshal(b)
	if err != nil {
		return errcode.Annotate(err, "marshal record")
	}
	if _, err := c.db.Exec(
		`insert or replace into built (artifact, digest, record)
		values (?, ?, ?)`,
		artifact, b.Digest, string(bs),
	); err != nil {
		return errcode.Annotate(err, "insert record")
	}
	return nil
}

func (c *buildCache) remove(artifact string) error {
	_, err := c.db.Exec(`delete from built where artifact=?`, artifact)
	return err
}

func (c *buildCache) Close() error { return c.db.Close() }
