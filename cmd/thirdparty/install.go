package main

import (
	"context"

	"github.com/kataras/lottie-inline/internal/manifest"
	"github.com/kataras/lottie-inline/pkg/cliutil"
	"github.com/kataras/lottie-inline/pkg/thirdparty"
)

// pending returns the dependencies whose target lacks the install marker,
// or all of deps when force is set.
func pending(deps []manifest.Dependency, force bool) []manifest.Dependency {
	var out []manifest.Dependency
	for _, dep := range deps {
		if force || dep.Force || !thirdparty.IsInstalled(dep.Target) {
			out = append(out, dep)
		}
	}
	return out
}

// prefetch downloads the archives of deps concurrently.
func prefetch(ctx context.Context, inst *thirdparty.Installer, deps []manifest.Dependency, force bool, jobs int) error {
	var reqs []thirdparty.DownloadRequest
	var forced []thirdparty.DownloadRequest
	for _, dep := range deps {
		req := thirdparty.DownloadRequest{URL: dep.URL, Target: dep.Archive}
		if force || dep.Force {
			forced = append(forced, req)
		} else {
			reqs = append(reqs, req)
		}
	}

	if err := inst.Prefetch(ctx, forced, true, jobs); err != nil {
		return err
	}
	return inst.Prefetch(ctx, reqs, false, jobs)
}

// installDependency extracts the downloaded archive of dep into dep.Target
// and runs its post-install commands inside that directory, behind the
// install marker. It reports whether an install ran.
func (a *app) installDependency(ctx context.Context, inst *thirdparty.Installer, dep manifest.Dependency, force bool) (bool, error) {
	return inst.EnsureInstalled(ctx, dep.Target, func(ctx context.Context) error {
		if err := inst.EnsureExtracted(dep.Archive, dep.Target, dep.InnerRoot); err != nil {
			return err
		}

		sh := cliutil.NewShell(a.console)
		sh.Dir = dep.Target
		sh.Stdout = a.stdout
		sh.Stderr = a.stderr
		for _, command := range dep.PostInstall {
			if err := sh.Run(ctx, command, true); err != nil {
				return err
			}
		}
		return nil
	}, force || dep.Force)
}
