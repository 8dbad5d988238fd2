// Command fileconvert converts files between tabular, text, image and PDF formats.
package main

import "fileconvert/cmd"

// Build metadata, injected by the mage build target through -ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit)
	cmd.Execute()
}
