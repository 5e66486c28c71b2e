package sendgridnotif

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/schoolnotes/gradesync/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// service delivers grade alerts as email via Sendgrid; the production
// notification surface for the headless daemon.
type service struct {
	key        string
	from       *sgmail.Email
	to         *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.Notifier = (*service)(nil)

func NewService(conf *core.Config, logger core.Logger) core.Notifier {
	return &service{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		to:         sgmail.NewEmail(conf.AlertEmail.Name, conf.AlertEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *service) SendNotifications(notifs ...*core.Notification) {
	for _, notif := range notifs {
		notif := notif
		go func() {
			if notif.Title == "" && notif.Body == "" {
				return
			}
			svc.send(*notif)
		}()
	}
}

func (svc *service) prepare(notif core.Notification) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + notif.Title
	p.AddTos(svc.to)
	if notif.TimeSensitive {
		p.SetHeader("Priority", "urgent")
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", notif.Body))
	return m
}

func (svc *service) send(notif core.Notification) {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(notif))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending notification %s: %v", notif.ID, err), err)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending notification %s: sendgrid returned %d", notif.ID, res.StatusCode))
	}
}
