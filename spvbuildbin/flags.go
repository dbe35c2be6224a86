package spvbuildbin

import (
	"os"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/flagutil"
	"shanhu.io/misc/osutil"
	"shanhu.io/spvbuild"
	"shanhu.io/text/lexing"
)

var cmdFlags = flagutil.NewFactory("spvbuild")

type buildFlags struct {
	file   string
	config *spvbuild.Config
}

func declareBuildFlags(flags *flagutil.FlagSet) *buildFlags {
	f := &buildFlags{config: spvbuild.DefaultConfig()}
	c := f.config
	flags.StringVar(&f.file, "f", spvbuild.BuildFileName, "build file")
	flags.IntVar(&c.Jobs, "j", 1, "number of parallel compilations")
	flags.StringVar(&c.Compiler, "glslc", c.Compiler, "shader compiler")
	flags.StringVar(&c.Flags, "flags", "", "extra compiler flags")
	flags.StringVar(&c.Docker, "docker", "", "run the compiler in this image")
	flags.StringVar(&c.Cache, "cache", "", "build stamp cache file")
	return f
}

// shaderSets loads the shader sets to work on. When the build file does not
// exist, the default shader set is used. When names is not empty, only the
// named sets are returned.
func (f *buildFlags) shaderSets(names []string) ([]*spvbuild.ShaderSet, error) {
	if f.config.Jobs <= 0 {
		return nil, errcode.InvalidArgf("invalid job count %d", f.config.Jobs)
	}

	exist, err := osutil.IsRegular(f.file)
	if err != nil && !os.IsNotExist(err) {
		return nil, errcode.Annotate(err, "check build file")
	}

	var sets []*spvbuild.ShaderSet
	if exist {
		ss, errs := spvbuild.LoadBuildFile(f.file, f.config)
		if errs != nil {
			wd, _ := os.Getwd()
			lexing.FprintErrs(os.Stderr, errs, wd)
			return nil, errcode.InvalidArgf(
				"read build file got %d errors", len(errs),
			)
		}
		sets = ss
	} else {
		sets = []*spvbuild.ShaderSet{{
			Name:   "default",
			Config: f.config,
		}}
	}

	if len(names) == 0 {
		return sets, nil
	}

	m := make(map[string]*spvbuild.ShaderSet)
	for _, s := range sets {
		m[s.Name] = s
	}
	var picked []*spvbuild.ShaderSet
	for _, name := range names {
		s, ok := m[name]
		if !ok {
			return nil, errcode.NotFoundf("shader set %q not found", name)
		}
		picked = append(picked, s)
	}
	return picked, nil
}
