package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/portal"
	"github.com/schoolnotes/gradesync/storage/state"
	inmemstate "github.com/schoolnotes/gradesync/storage/state/inmem"
	testutil "github.com/schoolnotes/gradesync/tests"
)

func setup(t *testing.T) *commandLine {
	logger = log.New(os.Stdout, "ADMIN-TEST : ", log.LstdFlags)

	return &commandLine{
		conf: &core.Config{
			AppName:   "GradeSync",
			SecretKey: "secret",
			Server: core.ServerConfig{
				JWTExpirationDelta:        10 * time.Minute,
				JWTRefreshExpirationDelta: 4 * time.Hour,
			},
		},
		store: inmemstate.NewStore(),
		out:   new(bytes.Buffer),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)
	cli.db = new(sql.DB) // never touched; gooseRunFunc is mocked

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "settings", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_migrate_noDatabase(t *testing.T) {
	cli := setup(t)

	if err := cli.run([]string{"admin", "migrate", "up"}); err != errNoDatabase {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errNoDatabase)
	}
}

func Test_commandLine_prefs(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no value", args: []string{"prefs"}, wantErr: errHelp},
		{name: "bad value", args: []string{"prefs", "-notifications", "maybe"}, wantErr: errHelp},
		{name: "off", args: []string{"prefs", "-notifications", "off"}, extra: false},
		{name: "on", args: []string{"prefs", "-notifications", "on"}, extra: true},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			settings, err := state.LoadSettings(cli.store)
			if err != nil {
				t.Fatalf("LoadSettings() failed: %v", err)
			}
			if want := tt.extra.(bool); settings.NotifyEnabled() != want {
				t.Errorf("NotifyEnabled() = %v, want %v", settings.NotifyEnabled(), want)
			}
		})
	}
}

func Test_commandLine_session(t *testing.T) {
	cli := setup(t)

	snap := portal.Snapshot{
		Cookies: []portal.Cookie{
			{Name: "_session_id", Value: "s3cret", Domain: "portals.veracross.com", Path: "/"},
		},
		SavedAt: time.Now().Unix(),
	}
	snapJSON := testutil.MustMarshal(t, snap)
	if err := cli.store.Set(state.KeySession, snapJSON); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }

	out := filepath.Join(t.TempDir(), "session.enc")
	if err := cli.run([]string{"admin", "exportsession", "-out", out}); err != nil {
		t.Fatalf("exportsession failed: %v", err)
	}

	// the file on disk must not leak the cookie value
	sealed, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("s3cret")) {
		t.Error("exported session is not encrypted")
	}

	t.Run("round trip", func(t *testing.T) {
		fresh := setup(t)
		if err := fresh.run([]string{"admin", "importsession", "-in", out}); err != nil {
			t.Fatalf("importsession failed: %v", err)
		}
		got, err := fresh.store.Get(state.KeySession)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		testutil.AssertJSONEq(t, snapJSON, got)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte("hunter3"), nil }
		fresh := setup(t)
		if err := fresh.run([]string{"admin", "importsession", "-in", out}); err != errBadPassphrase {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errBadPassphrase)
		}
	})

	t.Run("empty passphrase", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
		if err := cli.run([]string{"admin", "exportsession", "-out", out}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("no session to export", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }
		fresh := setup(t)
		if err := fresh.run([]string{"admin", "exportsession", "-out", out}); err == nil {
			t.Error("cli.run() expected an error, got nil")
		}
	})
}

func Test_commandLine_token(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no device", args: []string{"token"}, wantErr: errHelp},
		{name: "ok", args: []string{"token", "-device", "iPhone 13"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if out := cli.out.(*bytes.Buffer).String(); len(out) == 0 {
				t.Error("cli.run() printed no token")
			}
		})
	}
}
