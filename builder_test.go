package spvbuild

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeCompilerArg = "fake-glslc"

// TestHelperProcess is not a real test. The build tests run the test binary
// as a glslc-like compiler:
//
//	<test binary> -test.run=TestHelperProcess -- fake-glslc <log> <src> -o <out>
//
// It appends the source path to the log file, fails on sources that
// contain "#error", and otherwise writes a SPIR-V header followed by the
// source.
func TestHelperProcess(t *testing.T) {
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 || args[1] != fakeCompilerArg {
		return
	}
	args = args[2:]
	if len(args) != 4 || args[2] != "-o" {
		fmt.Fprintf(os.Stderr, "bad arguments: %q\n", args)
		os.Exit(2)
	}
	logFile, src, out := args[0], args[1], args[3]

	f, err := os.OpenFile(
		logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Fprintln(f, src)
	f.Close()

	bs, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "glslc: error: %s\n", err)
		os.Exit(1)
	}
	if bytes.Contains(bs, []byte("#error")) {
		fmt.Fprintf(os.Stderr, "%s:1: error: '#error' : forced failure\n", src)
		os.Exit(1)
	}
	if err := os.WriteFile(out, fakeSPIRV(bs), 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func fakeSPIRV(src []byte) []byte {
	buf := new(bytes.Buffer)
	for _, w := range []uint32{spirvMagic, 0x00010300, 0, 1, 0} {
		binary.Write(buf, binary.LittleEndian, w)
	}
	buf.Write(src)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

const (
	testVert = "#version 450\nvoid main() { gl_Position = vec4(0.0); }\n"
	testFrag = "#version 450\nlayout(location = 0) out vec4 c;\n" +
		"void main() { c = vec4(1.0); }\n"
	testBadFrag = "#version 450\n#error broken\n"
)

func writeFile(t *testing.T, f, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(f), 0755))
	require.NoError(t, os.WriteFile(f, []byte(content), 0644))
}

type testWorkspace struct {
	dir    string
	srcDir string
	log    string
}

func newTestWorkspace(t *testing.T) *testWorkspace {
	t.Helper()
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "data", "shaders")
	writeFile(t, filepath.Join(srcDir, "default.vert"), testVert)
	writeFile(t, filepath.Join(srcDir, "default.frag"), testFrag)
	return &testWorkspace{
		dir:    dir,
		srcDir: srcDir,
		log:    filepath.Join(dir, "compiler.log"),
	}
}

func (w *testWorkspace) flags() string {
	return fmt.Sprintf(
		"-test.run=TestHelperProcess -- %s '%s'", fakeCompilerArg, w.log,
	)
}

func (w *testWorkspace) config() *Config {
	return &Config{
		SourceDir: w.srcDir,
		Compiler:  os.Args[0],
		Sources:   []string{"default.vert", "default.frag"},
		Suffix:    ".spv",
		Flags:     w.flags(),
		Jobs:      1,
	}
}

// compiled returns the base names of the sources the fake compiler was
// invoked on, in invocation order.
func (w *testWorkspace) compiled(t *testing.T) []string {
	t.Helper()
	bs, err := os.ReadFile(w.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(bs)), "\n") {
		if line != "" {
			names = append(names, filepath.Base(line))
		}
	}
	return names
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func modTime(t *testing.T, f string) time.Time {
	t.Helper()
	info, err := os.Stat(f)
	require.NoError(t, err)
	return info.ModTime()
}

func TestBuildAll(t *testing.T) {
	w := newTestWorkspace(t)
	b := NewBuilder(w.config())

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default.vert", "default.frag"}, res.Built)
	assert.Empty(t, res.UpToDate)
	assert.Equal(t, []string{"default.vert", "default.frag"}, w.compiled(t))

	assert.Equal(t, []string{
		"default.frag", "default.frag.spv",
		"default.vert", "default.vert.spv",
	}, listDir(t, w.srcDir))

	for _, src := range []string{"default.vert", "default.frag"} {
		srcTime := modTime(t, b.Src(src))
		outTime := modTime(t, b.Out(src+".spv"))
		assert.False(t, outTime.Before(srcTime), src)
	}

	require.NoError(t, b.Check())
}

func TestBuildAllUpToDate(t *testing.T) {
	w := newTestWorkspace(t)
	b := NewBuilder(w.config())

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	before := make(map[string][]byte)
	for _, f := range b.Artifacts() {
		bs, err := os.ReadFile(f)
		require.NoError(t, err)
		before[f] = bs
	}

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Built)
	assert.Equal(t, []string{"default.vert", "default.frag"}, res.UpToDate)
	assert.Len(t, w.compiled(t), 2, "second build must not compile")

	for f, want := range before {
		got, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.Equal(t, want, got, f)
	}
}

func TestBuildAllRebuildsChanged(t *testing.T) {
	w := newTestWorkspace(t)
	b := NewBuilder(w.config())

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	fragOut := b.Out("default.frag.spv")
	fragBytes, err := os.ReadFile(fragOut)
	require.NoError(t, err)
	fragTime := modTime(t, fragOut)

	vert := b.Src("default.vert")
	writeFile(t, vert, testVert+"// changed\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(vert, future, future))

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default.vert"}, res.Built)
	assert.Equal(t, []string{"default.frag"}, res.UpToDate)
	assert.Equal(t, []string{
		"default.vert", "default.frag", "default.vert",
	}, w.compiled(t))

	vertBytes, err := os.ReadFile(b.Out("default.vert.spv"))
	require.NoError(t, err)
	assert.Contains(t, string(vertBytes), "// changed")

	got, err := os.ReadFile(fragOut)
	require.NoError(t, err)
	assert.Equal(t, fragBytes, got)
	assert.True(t, fragTime.Equal(modTime(t, fragOut)))
}

func TestCleanThenBuild(t *testing.T) {
	w := newTestWorkspace(t)
	b := NewBuilder(w.config())

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(w.srcDir, "notes.txt"), "keep me")

	removed, err := b.Clean()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(w.srcDir, "default.frag.spv"),
		filepath.Join(w.srcDir, "default.vert.spv"),
	}, removed)
	assert.Equal(t, []string{
		"default.frag", "default.vert", "notes.txt",
	}, listDir(t, w.srcDir))

	removed, err = b.Clean()
	require.NoError(t, err)
	assert.Empty(t, removed)

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default.vert", "default.frag"}, res.Built)
	assert.Equal(t, []string{
		"default.frag", "default.frag.spv",
		"default.vert", "default.vert.spv", "notes.txt",
	}, listDir(t, w.srcDir))
}

func TestCleanMissingOutputDir(t *testing.T) {
	config := &Config{
		SourceDir: filepath.Join(t.TempDir(), "nothing"),
		Sources:   []string{"a.vert"},
	}
	removed, err := NewBuilder(config).Clean()
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestBuildAllSourceMissing(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()
	config.Sources = []string{"default.vert", "missing.frag", "default.frag"}
	b := NewBuilder(config)

	_, err := b.BuildAll(context.Background())
	require.Error(t, err)

	var missing *SourceMissingError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "missing.frag", missing.Source)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, w.compiled(t))
}

func TestBuildAllCompileError(t *testing.T) {
	w := newTestWorkspace(t)
	writeFile(t, filepath.Join(w.srcDir, "default.frag"), testBadFrag)

	config := w.config()
	config.Sources = []string{"default.frag", "default.vert"}
	b := NewBuilder(config)

	_, err := b.BuildAll(context.Background())
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "default.frag", ce.Source)
	assert.Contains(t, string(ce.Output), "forced failure")
	assert.Contains(t, err.Error(), "forced failure")

	// Aborts on the first failure.
	assert.Equal(t, []string{"default.frag"}, w.compiled(t))
	_, err = os.Stat(b.Out("default.vert.spv"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildAllCompilerNotFound(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()
	config.Compiler = filepath.Join(w.dir, "no-such-glslc")
	b := NewBuilder(config)

	_, err := b.BuildAll(context.Background())
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Contains(t, err.Error(), "not found")
}

func TestBuildAllParallel(t *testing.T) {
	w := newTestWorkspace(t)
	var sources []string
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("s%d.vert", i)
		writeFile(t, filepath.Join(w.srcDir, name), testVert)
		sources = append(sources, name)
	}

	config := w.config()
	config.Sources = sources
	config.Jobs = 4
	b := NewBuilder(config)

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sources, res.Built)
	assert.Len(t, w.compiled(t), 6)
	for _, f := range b.Artifacts() {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}
	require.NoError(t, b.Check())
}

func TestBuildAllParallelAbort(t *testing.T) {
	w := newTestWorkspace(t)
	writeFile(t, filepath.Join(w.srcDir, "bad.frag"), testBadFrag)

	config := w.config()
	config.Sources = []string{"bad.frag", "default.vert", "default.frag"}
	config.Jobs = 2
	_, err := NewBuilder(config).BuildAll(context.Background())

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
}

func TestBuildAllCache(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()
	config.Cache = filepath.Join(w.dir, "cache", "stamps.db")

	res, err := NewBuilder(config).BuildAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Built, 2)

	res, err = NewBuilder(config).BuildAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Built)

	// Changing the flags changes the rule digest.
	config.Flags = "-test.count=1 " + w.flags()
	res, err = NewBuilder(config).BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default.vert", "default.frag"}, res.Built)
	assert.Len(t, w.compiled(t), 4)

	// The cache lives outside of the output directory.
	assert.Equal(t, []string{
		"default.frag", "default.frag.spv",
		"default.vert", "default.vert.spv",
	}, listDir(t, w.srcDir))
}

func TestBuildAllNoCacheIgnoresFlags(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()

	_, err := NewBuilder(config).BuildAll(context.Background())
	require.NoError(t, err)

	config.Flags = "-test.count=1 " + w.flags()
	res, err := NewBuilder(config).BuildAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Built)
}

func TestBuildAllCacheDetectsTamperedArtifact(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()
	config.Cache = filepath.Join(w.dir, "stamps.db")
	b := NewBuilder(config)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	writeFile(t, b.Out("default.frag.spv"), "garbage")

	res, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default.frag"}, res.Built)
	require.NoError(t, b.Check())
}

func TestBuildAllOutputDir(t *testing.T) {
	w := newTestWorkspace(t)
	config := w.config()
	config.OutputDir = filepath.Join(w.dir, "out", "spv")
	config.Sources = append(config.Sources, "post/blur.frag")
	writeFile(t, filepath.Join(w.srcDir, "post", "blur.frag"), testFrag)
	b := NewBuilder(config)

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"default.frag.spv", "default.vert.spv", "post",
	}, listDir(t, config.OutputDir))
	assert.Equal(t, []string{"blur.frag.spv"},
		listDir(t, filepath.Join(config.OutputDir, "post")))
	assert.Equal(t, []string{
		"default.frag", "default.vert", "post",
	}, listDir(t, w.srcDir))

	removed, err := b.Clean()
	require.NoError(t, err)
	assert.Len(t, removed, 3)
}

func TestBuildAllOutputDirError(t *testing.T) {
	w := newTestWorkspace(t)
	blocker := filepath.Join(w.dir, "blocker")
	writeFile(t, blocker, "a file, not a directory")

	config := w.config()
	config.OutputDir = filepath.Join(blocker, "out")
	_, err := NewBuilder(config).BuildAll(context.Background())

	var oe *OutputDirError
	require.True(t, errors.As(err, &oe), "got %v", err)
	assert.Empty(t, w.compiled(t))
}

func TestBuildAllInvalidConfig(t *testing.T) {
	w := newTestWorkspace(t)
	for _, test := range []struct {
		name    string
		sources []string
		suffix  string
	}{
		{name: "duplicate", sources: []string{"default.vert", "./default.vert"}},
		{name: "escape", sources: []string{"../default.vert"}},
		{name: "absolute", sources: []string{"/etc/passwd"}},
		{name: "empty", sources: []string{""}},
		{name: "suffix", sources: []string{"default.vert"}, suffix: "/x"},
	} {
		t.Run(test.name, func(t *testing.T) {
			config := w.config()
			config.Sources = test.sources
			if test.suffix != "" {
				config.Suffix = test.suffix
			}
			_, err := NewBuilder(config).BuildAll(context.Background())
			assert.Error(t, err)
		})
	}
	assert.Empty(t, w.compiled(t))
}

func TestBuildAllCanceled(t *testing.T) {
	w := newTestWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(w.config()).BuildAll(ctx)
	require.Error(t, err)
	assert.Empty(t, w.compiled(t))
}

func TestArtifacts(t *testing.T) {
	config := &Config{
		SourceDir: "data/shaders",
		Sources:   []string{"default.vert", "default.frag"},
	}
	assert.Equal(t, []string{
		filepath.Join("data", "shaders", "default.vert.spv"),
		filepath.Join("data", "shaders", "default.frag.spv"),
	}, NewBuilder(config).Artifacts())
}
