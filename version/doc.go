// Package version reports the build of the datapipe binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/datapipe/version.Version=1.2.0" ./cmd/datapipe
//
// Unset values fall back to the VCS stamp recorded by the Go toolchain.
package version
