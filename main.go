package main

import (
	"os"

	"github.com/geneticgrabbag/securefs/internal/cli"
	"github.com/geneticgrabbag/securefs/internal/exitcode"
	"github.com/geneticgrabbag/securefs/internal/tlog"
)

func main() {
	args := cli.ParseArgs()
	switch args.Command {
	case "create":
		cli.Create(args)
	case "info":
		cli.Info(args)
	case "chpass":
		cli.ChangePwd(args)
	default:
		tlog.Fatal.Printf("Unknown command: %s", args.Command)
		os.Exit(exitcode.Usage)
	}
}
