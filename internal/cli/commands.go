// Package cli implements the securefs subcommands operating on a base
// directory and its config document.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geneticgrabbag/securefs/corecrypter"
	"github.com/geneticgrabbag/securefs/internal/exitcode"
	"github.com/geneticgrabbag/securefs/internal/readpwd"
	"github.com/geneticgrabbag/securefs/internal/tlog"
	"github.com/geneticgrabbag/securefs/keycrypter"
)

func checkBaseDir(baseDir string) {
	fi, err := os.Stat(baseDir)
	if err != nil || !fi.IsDir() {
		tlog.Fatal.Printf("Not a valid base directory: %s", baseDir)
		os.Exit(exitcode.BaseDir)
	}
}

// Create initializes a base directory: generates a master key and
// writes the password-protected config document.
func Create(args *Args) {
	checkBaseDir(args.BaseDir)
	cfgPath := filepath.Join(args.BaseDir, keycrypter.ConfigFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		tlog.Fatal.Printf("Already a securefs base directory: %s", args.BaseDir)
		os.Exit(exitcode.Config)
	}

	// Version 1 has fixed geometry
	blockSize, ivSize := args.BlockSize, args.IVSize
	if args.Version == 1 {
		blockSize, ivSize = keycrypter.DefaultBlockSize, 32
	}

	pwd, err := readpwd.Twice(args.Extpass())
	if err != nil {
		tlog.Fatal.Println(err)
		os.Exit(exitcode.Password)
	}
	masterKey, err := corecrypter.RandomKey()
	if err != nil {
		tlog.Fatal.Printf("Generate master key failed: %v", err)
		os.Exit(exitcode.Config)
	}
	defer corecrypter.WipeBytes(masterKey)

	cfg, err := keycrypter.GenerateConfig(args.Version, masterKey, []byte(pwd), args.Rounds, blockSize, ivSize)
	if err != nil {
		tlog.Fatal.Printf("Generate config failed: %v", err)
		os.Exit(exitcode.Config)
	}
	if err := keycrypter.WriteConfigFile(args.BaseDir, cfg); err != nil {
		tlog.Fatal.Printf("Write config file failed: %v", err)
		os.Exit(exitcode.Config)
	}

	fmt.Printf("Initialized base directory: %s\n", args.BaseDir)
	fmt.Print(cfg.String())
}

// Info prints the public parameters of a base directory
func Info(args *Args) {
	checkBaseDir(args.BaseDir)
	cfg, err := keycrypter.ReadConfigFile(filepath.Join(args.BaseDir, keycrypter.ConfigFileName))
	if err != nil {
		tlog.Fatal.Println(err)
		os.Exit(exitcode.Config)
	}
	fmt.Printf("Base directory: %s\n", args.BaseDir)
	fmt.Print(cfg.String())
}

// ChangePwd rewraps the master key under a new password
func ChangePwd(args *Args) {
	checkBaseDir(args.BaseDir)
	oldPwd, err := readpwd.Once(args.Extpass())
	if err != nil {
		tlog.Fatal.Println(err)
		os.Exit(exitcode.Password)
	}
	fmt.Println("Enter your new password.")
	newPwd, err := readpwd.Twice("")
	if err != nil {
		tlog.Fatal.Println(err)
		os.Exit(exitcode.Password)
	}
	err = keycrypter.ChangePassword(args.BaseDir, []byte(oldPwd), []byte(newPwd))
	if errors.Is(err, keycrypter.ErrWrongPassword) {
		tlog.Fatal.Println("Wrong password")
		os.Exit(exitcode.Password)
	}
	if err != nil {
		tlog.Fatal.Printf("Change password failed: %v", err)
		os.Exit(exitcode.Config)
	}
	fmt.Printf("Password changed: %s\n", args.BaseDir)
}
