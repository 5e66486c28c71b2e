package main

import (
	"fmt"
	"time"

	"github.com/schoolnotes/gradesync/core"
	notifsvc "github.com/schoolnotes/gradesync/services/notification"
	sendgridnotif "github.com/schoolnotes/gradesync/services/notification/sendgrid"
	"github.com/schoolnotes/gradesync/storage/state"
)

func (cli *commandLine) setNotifications(enabled bool) error {
	if err := state.SaveSettings(cli.store, state.Settings{NotificationsEnabled: &enabled}); err != nil {
		return err
	}
	status := "off"
	if enabled {
		status = "on"
	}
	_, _ = fmt.Fprintf(cli.out, "notifications %s\n", status)
	return nil
}

func (cli *commandLine) testNotify(body string) error {
	var notifier core.Notifier
	if cli.conf.Debug {
		notifier = notifsvc.NewConsoleService(cli.conf)
	} else {
		notifier = sendgridnotif.NewService(cli.conf, logsvcAdapter{})
	}

	alert := core.NewGradeAlert("Sample Assignment", "47", 50, "Sample Course", "92")
	if body != "" {
		alert.Body = body
	}
	notifier.SendNotifications(alert)

	// delivery is fire-and-forget; give it a beat before the process exits
	time.Sleep(2 * time.Second)
	return nil
}

// logsvcAdapter bridges the bootstrap *log.Logger to core.Logger for the
// one-off test notification.
type logsvcAdapter struct{}

var _ core.Logger = logsvcAdapter{}

func (logsvcAdapter) Enable(bool) {}

func (logsvcAdapter) Debug(msg string, args ...interface{}) { logger.Println(msg) }

func (logsvcAdapter) Info(msg string, args ...interface{}) { logger.Println(msg) }

func (logsvcAdapter) Warn(msg string, args ...interface{}) { logger.Println(msg) }

func (logsvcAdapter) Error(msg string, args ...interface{}) { logger.Println(msg) }

func (logsvcAdapter) Fatal(msg string, args ...interface{}) { logger.Fatal(msg) }
