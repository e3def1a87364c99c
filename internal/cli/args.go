package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/geneticgrabbag/securefs/corecrypter"
	"github.com/geneticgrabbag/securefs/internal/exitcode"
	"github.com/geneticgrabbag/securefs/internal/readpwd"
	"github.com/geneticgrabbag/securefs/internal/tlog"
)

// Args holds the parsed command line
type Args struct {
	// Command is one of create, info, chpass
	Command string
	// BaseDir is the directory holding the encrypted files
	BaseDir string

	Version   int
	Rounds    int
	BlockSize int
	IVSize    int
	PassFile  string
	ExtPass   string
	Debug     bool
}

// Extpass returns the external password command implied by the flags:
// -extpass verbatim, or -passfile wrapped in a cat invocation.
func (a *Args) Extpass() string {
	if a.PassFile != "" {
		return readpwd.PassfileCat + a.PassFile
	}
	return a.ExtPass
}

func usage() {
	fmt.Fprintf(os.Stderr, `securefs - encrypted filesystem base directory tool

Usage:
  securefs create [options] BASEDIR    initialize a base directory
  securefs info BASEDIR                show config of a base directory
  securefs chpass [options] BASEDIR    change the password

Options:
`)
	flag.PrintDefaults()
}

// ParseArgs parses os.Args, exiting with a usage error when malformed
func ParseArgs() *Args {
	var args Args
	flag.IntVar(&args.Version, "version", 2, "on-disk format version (1 or 2)")
	flag.IntVar(&args.Rounds, "rounds", 0, "PBKDF2 rounds (0 for default)")
	flag.IntVar(&args.BlockSize, "blocksize", 4096, "plaintext block size in bytes")
	flag.IntVar(&args.IVSize, "ivsize", corecrypter.DefaultIVSize, "per-block IV size in bytes (12-64)")
	flag.StringVar(&args.PassFile, "passfile", "", "read the password from the first line of this file")
	flag.StringVar(&args.ExtPass, "extpass", "", "read the password from the first output line of this program")
	flag.BoolVar(&args.Debug, "debug", false, "enable debug output")
	flag.Usage = usage
	flag.Parse()

	if args.Debug {
		tlog.Debug.Enabled = true
	}
	if flag.NArg() != 2 {
		usage()
		os.Exit(exitcode.Usage)
	}
	args.Command = flag.Arg(0)
	args.BaseDir = flag.Arg(1)

	if args.Version != 1 && args.Version != 2 {
		tlog.Fatal.Printf("Unsupported version: %d", args.Version)
		os.Exit(exitcode.Usage)
	}
	if args.IVSize < 12 || args.IVSize > 64 {
		tlog.Fatal.Printf("IV size %d out of range [12, 64]", args.IVSize)
		os.Exit(exitcode.Usage)
	}
	if args.BlockSize <= 0 {
		tlog.Fatal.Printf("Bad block size: %d", args.BlockSize)
		os.Exit(exitcode.Usage)
	}
	return &args
}
