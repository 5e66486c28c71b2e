package main

import (
	"fmt"

	echoapi "github.com/schoolnotes/gradesync/apps/syncd/echo"
)

func (cli *commandLine) token(device string) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, device))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}
