package config

// Set at link time:
//
//	go build -ldflags "-X verdant/internal/config.version=1.0.0 \
//	    -X verdant/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X verdant/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}
