package main

import (
	"os"

	"github.com/doctransfer/signcore/cli"
)

func main() {
	if len(os.Args) < 2 {
		cli.Usage()
		return
	}

	switch os.Args[1] {
	case "flatten":
		cli.FlattenCommand()
	case "audit":
		cli.AuditCommand()
	default:
		cli.Usage()
	}
}
