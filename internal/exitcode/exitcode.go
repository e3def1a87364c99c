// Package exitcode contains all well-defined exit codes that securefs
// can return.
package exitcode

const (
	// Usage - usage error like wrong cli syntax, wrong number of parameters.
	Usage = 1
	// 2 is reserved because it is used by Go panic

	// Config means open/read/parse the config file failed
	Config = 3 + iota
	// Password means reading the password failed or it did not unlock the master key
	Password
	// BaseDir means that the base directory is invalid (not exist etc.)
	BaseDir
	// SigInt means we got SIGINT
	SigInt
)
