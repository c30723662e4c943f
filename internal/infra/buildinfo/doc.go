// Package buildinfo provides build information for zonemesh binaries.
//
// Version, Commit and BuildTime are injected via ldflags; GoVersion falls
// back to the toolchain recorded in the binary.
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/zonemesh-go/internal/infra/buildinfo.Version=v0.3.0"
package buildinfo
