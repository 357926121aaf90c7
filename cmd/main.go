// Command timetracker is the desktop time tracker and its command-line client.
package main

import "timetracker/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
