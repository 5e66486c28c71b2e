package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/storage/state"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate requires the postgres state backend")
)

type commandLine struct {
	conf  *core.Config
	db    *sql.DB
	store state.Store
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate SUBCOMMAND [args] - manage database migrations (postgres backend only)")
	fmt.Println("  exportsession -out FILE - export the portal session to an encrypted file")
	fmt.Println("  importsession -in FILE - import a portal session from an encrypted file")
	fmt.Println("  prefs -notifications on|off - toggle grade notifications")
	fmt.Println("  testnotify [-body TEXT] - send a test notification")
	fmt.Println("  token -device NAME - issue a device API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("exportsession", flag.ExitOnError)
	exportOut := exportCmd.String("out", "", "Destination file. The passphrase will be prompted next.")

	importCmd := flag.NewFlagSet("importsession", flag.ExitOnError)
	importIn := importCmd.String("in", "", "Source file. The passphrase will be prompted next.")

	prefsCmd := flag.NewFlagSet("prefs", flag.ExitOnError)
	prefsNotifs := prefsCmd.String("notifications", "", "Turn grade notifications 'on' or 'off'.")

	testNotifyCmd := flag.NewFlagSet("testnotify", flag.ExitOnError)
	testNotifyBody := testNotifyCmd.String("body", "", "Override the sample notification body.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenDevice := tokenCmd.String("device", "", "The device name the token identifies.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "exportsession":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassphrase(exportCmd)
		if err != nil {
			return err
		}
		if pwd == nil {
			return errHelp
		}
		return cli.exportSession(*exportOut, pwd)
	case "importsession":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importIn == "" {
			importCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassphrase(importCmd)
		if err != nil {
			return err
		}
		if pwd == nil {
			return errHelp
		}
		return cli.importSession(*importIn, pwd)
	case "prefs":
		if err := prefsCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch *prefsNotifs {
		case "on":
			return cli.setNotifications(true)
		case "off":
			return cli.setNotifications(false)
		default:
			prefsCmd.Usage()
			return errHelp
		}
	case "testnotify":
		if err := testNotifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.testNotify(*testNotifyBody)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenDevice == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenDevice)
	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassphrase returns nil (and no error) when the passphrase is empty.
func promptPassphrase(cmd *flag.FlagSet) ([]byte, error) {
	fmt.Print("Enter passphrase:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return nil, nil
	}
	return pwd, nil
}
