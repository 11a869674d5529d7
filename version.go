package main

import "github.com/jsimonrichard/bible-reading-progress/internal/cmd"

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildInfo() cmd.BuildInfo {
	return cmd.BuildInfo{Version: version, Commit: commit, Date: date}
}
