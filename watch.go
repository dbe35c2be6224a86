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
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"shanhu.io/misc/errcode"
	"shanhu.io/misc/strutil"
)

// ReportFunc receives the result of every build that a watch triggers.
type ReportFunc func(b *Builder, res *BuildResult, err error)

const watchSettle = 100 * time.Millisecond

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename |
	fsnotify.Chmod

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Watch builds all builders once, and then rebuilds a builder whenever one
// of its declared sources changes. Build failures are reported and do not
// stop the watch. It returns when ctx is done.
func Watch(ctx context.Context, builders []*Builder, report ReportFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errcode.Annotate(err, "create watcher")
	}
	defer w.Close()

	dirs := make(map[string]bool)
	bySource := make(map[string][]*Builder)
	for _, b := range builders {
		for _, s := range b.config.Sources {
			name, ok := cleanSourceName(s)
			if !ok {
				continue
			}
			f := absPath(b.env.src(name))
			bySource[f] = append(bySource[f], b)
			dirs[filepath.Dir(f)] = true
		}
	}
	for _, d := range strutil.SortedList(dirs) {
		if err := w.Add(d); err != nil {
			return errcode.Annotatef(err, "watch %q", d)
		}
	}

	build := func(b *Builder) {
		res, err := b.BuildAll(ctx)
		if report != nil {
			report(b, res, err)
		}
	}
	for _, b := range builders {
		build(b)
	}

	pending := make(map[*Builder]bool)
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&watchOps == 0 {
				continue
			}
			for _, b := range bySource[absPath(ev.Name)] {
				pending[b] = true
			}
			if len(pending) > 0 && settle == nil {
				settle = time.After(watchSettle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %s", err)
		case <-settle:
			settle = nil
			for _, b := range builders {
				if pending[b] {
					build(b)
				}
			}
			pending = make(map[*Builder]bool)
		}
	}
}
