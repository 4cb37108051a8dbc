// Package buildinfo exposes version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/gilby125/fly-or-drive/pkg/buildinfo.Version=v1.2.3 \
//	  -X github.com/gilby125/fly-or-drive/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/gilby125/fly-or-drive/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				Commit = s.Value[:7]
			} else if s.Value != "" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" && s.Value != "" {
				Date = s.Value
			}
		}
	}
}

// Info returns the build metadata as a flat map for health and version
// responses.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
