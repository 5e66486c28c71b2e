package notifsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/schoolnotes/gradesync/core"
)

var (
	SentNotifications = make([]core.Notification, 0)
	mu                sync.Mutex
)

// consoleService prints notifications to the log; the delivery surface for
// local development.
type consoleService struct {
	subjPrefix    string
	disableOutput bool
}

var _ core.Notifier = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.Notifier {
	return &consoleService{
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) SendNotifications(notifs ...*core.Notification) {
	for _, notif := range notifs {
		go svc.sendNotification(notif)
	}
}

func (svc consoleService) sendNotification(notif *core.Notification) {
	if notif.Title == "" && notif.Body == "" {
		return
	}
	svc.send(*notif)
	mu.Lock()
	SentNotifications = append(SentNotifications, *notif)
	mu.Unlock()
}

func (svc consoleService) send(notif core.Notification) {
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "Notification: %s%s\r\n", svc.subjPrefix, notif.Title)
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", notif.CreatedAt.Format(time.RFC1123Z))
	if notif.TimeSensitive {
		_, _ = fmt.Fprint(body, "Interruption-Level: time-sensitive\r\n")
	}
	_, _ = fmt.Fprintf(body, "\r\n%s\r\n", notif.Body)

	if !svc.disableOutput {
		log.Println(body.String())
	}
}

type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock(conf *core.Config) core.Notifier {
	return &consoleServiceMock{
		consoleService: consoleService{
			subjPrefix:    "[" + conf.AppName + "] ",
			disableOutput: true,
		},
	}
}

func (svc *consoleServiceMock) SendNotifications(notifs ...*core.Notification) {
	for _, notif := range notifs {
		// run synchronously
		svc.sendNotification(notif)
	}
}

// ClearSentNotifications resets the capture buffer between tests.
func ClearSentNotifications() {
	mu.Lock()
	SentNotifications = SentNotifications[:0]
	mu.Unlock()
}
