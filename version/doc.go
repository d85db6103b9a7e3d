// Package version provides build-time version information.
//
// Set version information during build with ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ncobase/pulse/version.Version=1.2.3 \
//	  -X github.com/ncobase/pulse/version.Branch=main \
//	  -X github.com/ncobase/pulse/version.Revision=abc1234 \
//	  -X 'github.com/ncobase/pulse/version.BuiltAt=$(date)'"
//
// Values left unset fall back to the VCS stamp the Go toolchain embeds in
// the binary, so a plain `go build` inside a git checkout still reports its
// revision and commit time.
//
//	info := version.GetVersionInfo()
//	fmt.Println(info.String())
package version
