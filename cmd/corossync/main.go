package main

import (
	"corossync/cmd/corossync/commands"
	"corossync/lib/osutil"
)

func main() {
	ctx := osutil.SignalContext()
	commands.ExecuteContext(ctx)
}
