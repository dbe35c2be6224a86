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

package spvbuildbin

import (
	"context"
	"log"
	"os"
	"os/signal"

	"shanhu.io/misc/errcode"
	"shanhu.io/spvbuild"
)

func buildSet(ctx context.Context, s *spvbuild.ShaderSet) error {
	log.Printf("build %s", s.Name)
	b := spvbuild.NewBuilder(s.Config)
	res, err := b.BuildAll(ctx)
	if err != nil {
		return err
	}
	log.Printf(
		"%s: %d compiled, %d up to date",
		s.Name, len(res.Built), len(res.UpToDate),
	)
	return nil
}

func cmdBuild(args []string) error {
	flags := cmdFlags.New()
	bf := declareBuildFlags(flags)
	args = flags.ParseArgs(args)

	sets, err := bf.shaderSets(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, s := range sets {
		if err := buildSet(ctx, s); err != nil {
			return errcode.Annotatef(err, "build %q", s.Name)
		}
	}
	return nil
}

func cmdClean(args []string) error {
	flags := cmdFlags.New()
	bf := declareBuildFlags(flags)
	args = flags.ParseArgs(args)

	sets, err := bf.shaderSets(args)
	if err != nil {
		// Cleaning is best effort.
		log.Printf("clean: %s", err)
		return nil
	}
	for _, s := range sets {
		b := spvbuild.NewBuilder(s.Config)
		if _, err := b.Clean(); err != nil {
			log.Printf("clean %s: %s", s.Name, err)
		}
	}
	return nil
}

func cmdCheck(args []string) error {
	flags := cmdFlags.New()
	bf := declareBuildFlags(flags)
	args = flags.ParseArgs(args)

	sets, err := bf.shaderSets(args)
	if err != nil {
		return err
	}
	for _, s := range sets {
		b := spvbuild.NewBuilder(s.Config)
		if err := b.Check(); err != nil {
			return errcode.Annotatef(err, "check %q", s.Name)
		}
	}
	log.Println("all artifacts checked")
	return nil
}

func cmdManifest(args []string) error {
	flags := cmdFlags.New()
	bf := declareBuildFlags(flags)
	out := flags.String("o", "spvbuild.manifest.json", "output file")
	args = flags.ParseArgs(args)

	sets, err := bf.shaderSets(args)
	if err != nil {
		return err
	}

	var entries []*spvbuild.ManifestEntry
	for _, s := range sets {
		b := spvbuild.NewBuilder(s.Config)
		es, err := b.Manifest()
		if err != nil {
			return errcode.Annotatef(err, "manifest %q", s.Name)
		}
		entries = append(entries, es...)
	}
	return spvbuild.WriteManifest(*out, entries)
}

func cmdWatch(args []string) error {
	flags := cmdFlags.New()
	bf := declareBuildFlags(flags)
	args = flags.ParseArgs(args)

	sets, err := bf.shaderSets(args)
	if err != nil {
		return err
	}

	var builders []*spvbuild.Builder
	names := make(map[*spvbuild.Builder]string)
	for _, s := range sets {
		b := spvbuild.NewBuilder(s.Config)
		builders = append(builders, b)
		names[b] = s.Name
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := func(b *spvbuild.Builder, res *spvbuild.BuildResult, err error) {
		if err != nil {
			log.Printf("build %s: %s", names[b], err)
			return
		}
		log.Printf(
			"%s: %d compiled, %d up to date",
			names[b], len(res.Built), len(res.UpToDate),
		)
	}
	log.Println("watching; press Ctrl-C to stop")
	return spvbuild.Watch(ctx, builders, report)
}

func cmdToolchain(args []string) error {
	flags := cmdFlags.New()
	name := flags.String(
		"image", spvbuild.DefaultToolchainImage, "docker image name",
	)
	pull := flags.Bool("pull", false, "pull a prebuilt image instead")
	from := flags.String("from", "", "image to pull; same as -image if empty")
	digest := flags.String("digest", "", "pinned digest of the pulled image")
	sumFile := flags.String("sum", "", "file to save the pulled image sum")
	flags.ParseArgs(args)

	b := spvbuild.NewBuilder(spvbuild.DefaultConfig())
	if !*pull {
		return b.BuildToolchain(*name)
	}

	sum, err := b.PullToolchain(*name, *from, *digest)
	if err != nil {
		return err
	}
	log.Printf("toolchain %s: %s", *name, sum.Digest)
	if *sumFile != "" {
		return spvbuild.WriteToolchainSum(*sumFile, sum)
	}
	return nil
}
