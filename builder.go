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
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"golang.org/x/sync/errgroup"
	"shanhu.io/misc/errcode"
	"shanhu.io/misc/idutil"
	"shanhu.io/misc/osutil"
	"shanhu.io/misc/strutil"
)

// Builder builds shader artifacts.
type Builder struct {
	config *Config
	env    *env
}

// NewBuilder creates a new builder that builds the shaders declared in
// config.
func NewBuilder(config *Config) *Builder {
	return &Builder{
		config: config,
		env:    newEnv(config),
	}
}

// BuildResult lists what a build did, by declared source name.
type BuildResult struct {
	Built    []string // Compiled sources.
	UpToDate []string // Sources skipped for being up to date.
}

// Src returns the filesystem path to a source file.
func (b *Builder) Src(f string) string { return b.env.src(f) }

// Out returns the filesystem path to an output file.
func (b *Builder) Out(f string) string { return b.env.out(f) }

// Artifacts returns the paths of the artifacts, in declared order.
func (b *Builder) Artifacts() []string {
	var outs []string
	for _, s := range b.config.Sources {
		name, ok := cleanSourceName(s)
		if !ok {
			continue
		}
		outs = append(outs, b.env.out(b.env.artifact(name)))
	}
	return outs
}

func (b *Builder) rules() ([]*buildRule, error) {
	suffix := b.env.suffix
	if strings.ContainsAny(suffix, `/\`) {
		return nil, errcode.InvalidArgf("invalid suffix %q", suffix)
	}

	flags, err := shellwords.Parse(b.config.Flags)
	if err != nil {
		return nil, errcode.Annotatef(err, "parse flags %q", b.config.Flags)
	}

	var glsl compiler
	var glslAction *compileAction
	if d := b.config.Docker; d != "" {
		glsl = newDockerCompiler(b.env, d, b.config.compiler())
		glslAction = &compileAction{
			Compiler: b.config.compiler(),
			Docker:   d,
			Flags:    flags,
			Suffix:   suffix,
		}
	} else {
		c, err := newGLSLC(b.config.compiler())
		if err != nil {
			return nil, err
		}
		glsl = c
		glslAction = &compileAction{
			Compiler: c.bin,
			Flags:    flags,
			Suffix:   suffix,
		}
	}
	wgsl := newWGSLCompiler(flags)
	wgslAction := &compileAction{
		Compiler: builtinWGSL,
		Flags:    flags,
		Suffix:   suffix,
	}

	outs := make(map[string]string)
	var rules []*buildRule
	for _, s := range b.config.Sources {
		name, ok := cleanSourceName(s)
		if !ok {
			return nil, errcode.InvalidArgf("invalid source name %q", s)
		}
		out := b.env.artifact(name)
		if prev, ok := outs[out]; ok {
			return nil, errcode.InvalidArgf(
				"source %q and %q both build %q", prev, s, out,
			)
		}
		outs[out] = s

		var r *buildRule
		if sourceLang(name) == langWGSL {
			r = newBuildRule(b.env, name, wgsl, wgslAction)
		} else {
			r = newBuildRule(b.env, name, glsl, glslAction)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (b *Builder) checkSources(rules []*buildRule) error {
	for _, r := range rules {
		f := b.env.src(r.src)
		ok, err := osutil.IsRegular(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errcode.Annotatef(err, "check source %q", r.src)
		}
		if !ok {
			return &SourceMissingError{Source: r.src, Path: f}
		}
	}
	return nil
}

// prepareOutDir makes sure that the output directory exists and files can
// be created in it.
func (b *Builder) prepareOutDir() error {
	dir := b.env.out()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &OutputDirError{Dir: dir, Err: err}
	}
	f, err := os.CreateTemp(dir, ".spvbuild-*")
	if err != nil {
		return &OutputDirError{Dir: dir, Err: err}
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return &OutputDirError{Dir: dir, Err: err}
	}
	return nil
}

func (b *Builder) openCache() (*buildCache, error) {
	if b.config.Cache == "" {
		return nil, nil
	}
	c, err := newBuildCache(b.config.Cache)
	if err != nil {
		return nil, errcode.Annotate(err, "open build cache")
	}
	return c, nil
}

func (b *Builder) cacheKey(meta *buildRuleMeta) string {
	p := b.env.out(meta.out)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (b *Builder) upToDate(
	cache *buildCache, meta *buildRuleMeta, src *fileStat,
) (bool, error) {
	out, err := statArtifact(b.env, meta.out)
	if err != nil {
		if errcode.IsNotFound(err) {
			return false, nil
		}
		return false, errcode.Annotatef(err, "stat %q", meta.out)
	}
	if !newerOrSame(out, src) {
		return false, nil
	}
	if cache == nil {
		return true, nil
	}

	rec, err := cache.get(b.cacheKey(meta))
	if err != nil {
		if errors.Is(err, errNotFoundInCache) {
			return false, nil
		}
		return false, errcode.Annotate(err, "check from build cache")
	}
	if rec.Digest != meta.digest || rec.Out == nil {
		return false, nil
	}
	return rec.Out.unchanged(b.env)
}

func (b *Builder) buildRule(
	ctx context.Context, cache *buildCache, r *buildRule,
) (bool, error) {
	meta, err := r.meta()
	if err != nil {
		return false, err
	}

	src, err := statSource(b.env, r.src)
	if err != nil {
		if errcode.IsNotFound(err) {
			return false, &SourceMissingError{
				Source: r.src, Path: b.env.src(r.src),
			}
		}
		return false, errcode.Annotatef(err, "stat %q", r.src)
	}

	fresh, err := b.upToDate(cache, meta, src)
	if err != nil {
		return false, err
	}
	if fresh {
		return false, nil
	}

	key := b.cacheKey(meta)
	if cache != nil {
		if err := cache.remove(key); err != nil {
			return false, errcode.Annotate(err, "invalidate cache")
		}
	}

	out, err := b.env.prepareOut(r.out)
	if err != nil {
		return false, &OutputDirError{Dir: filepath.Dir(b.env.out(r.out)), Err: err}
	}

	log.Printf("COMPILE %s -> %s", b.env.src(r.src), out)
	job := &compileJob{
		name:  r.src,
		src:   b.env.src(r.src),
		out:   out,
		flags: r.flags,
	}
	if err := r.compiler.compile(ctx, job); err != nil {
		return false, err
	}

	if cache != nil {
		outStat, err := statArtifact(b.env, r.out)
		if err != nil {
			return false, errcode.Annotatef(err, "stat built %q", r.out)
		}
		rec := &built{Digest: meta.digest, Src: src, Out: outStat}
		if err := cache.put(key, rec); err != nil {
			return false, errcode.Annotate(err, "save in build cache")
		}
		d := strings.TrimPrefix(meta.digest, "sha256:")
		log.Printf("cached %s [%s]", r.out, idutil.Short(d))
	}
	return true, nil
}

// BuildAll makes sure that every declared source has an artifact that is
// at least as new as the source, compiling the ones that are not. It
// aborts on the first failure.
func (b *Builder) BuildAll(ctx context.Context) (*BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rules, err := b.rules()
	if err != nil {
		return nil, err
	}
	if err := b.checkSources(rules); err != nil {
		return nil, err
	}
	if err := b.prepareOutDir(); err != nil {
		return nil, err
	}

	cache, err := b.openCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		defer cache.Close()
	}

	compiled := make([]bool, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.jobs())
	for i, r := range rules {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := b.buildRule(gctx, cache, r)
			if err != nil {
				return err
			}
			compiled[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := new(BuildResult)
	for i, r := range rules {
		if compiled[i] {
			res.Built = append(res.Built, r.src)
		} else {
			res.UpToDate = append(res.UpToDate, r.src)
		}
	}
	return res, nil
}

// isArtifact tells if f in the output directory is an artifact: either a
// declared one, or one whose source still exists in the source directory.
// Other files with the suffix, such as a build file, are not artifacts.
func (b *Builder) isArtifact(f string, declared map[string]bool) (bool, error) {
	if !strings.HasSuffix(f, b.env.suffix) {
		return false, nil
	}
	if declared[filepath.Clean(f)] {
		return true, nil
	}
	rel, err := filepath.Rel(b.env.out(), f)
	if err != nil {
		return false, err
	}
	name := strings.TrimSuffix(filepath.ToSlash(rel), b.env.suffix)
	if name == "" {
		return false, nil
	}
	return osutil.IsRegular(b.env.src(name))
}

// Clean removes the artifacts in the output directory: the declared ones,
// and stale ones whose sources still exist. It returns the removed files
// in sorted order. Cleaning an output directory that does not exist is not
// an error.
func (b *Builder) Clean() ([]string, error) {
	dir := b.env.out()
	exist, err := osutil.IsDir(dir)
	if err != nil {
		return nil, errcode.Annotate(err, "check output dir")
	}
	if !exist {
		return nil, nil
	}

	files, err := listAllFiles(dir)
	if err != nil {
		return nil, errcode.Annotate(err, "list output dir")
	}

	cache, err := b.openCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		defer cache.Close()
	}

	declared := make(map[string]bool)
	for _, f := range b.Artifacts() {
		declared[filepath.Clean(f)] = true
	}

	removed := make(map[string]bool)
	for _, f := range files {
		ok, err := b.isArtifact(f, declared)
		if err != nil {
			return strutil.SortedList(removed), errcode.Annotatef(
				err, "check %q", f,
			)
		}
		if !ok {
			continue
		}
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return strutil.SortedList(removed), errcode.Annotatef(
				err, "remove %q", f,
			)
		}
		log.Printf("clean %s", f)
		removed[f] = true

		if cache != nil {
			key := f
			if abs, err := filepath.Abs(f); err == nil {
				key = abs
			}
			if err := cache.remove(key); err != nil {
				return strutil.SortedList(removed), errcode.Annotate(
					err, "remove from build cache",
				)
			}
		}
	}
	return strutil.SortedList(removed), nil
}
