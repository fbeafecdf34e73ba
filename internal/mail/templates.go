package mail

import (
	"html/template"
	"time"

	"github.com/iliyamo/event-booking/internal/queue"
)

type emailTemplate struct {
	subject string // fmt pattern, receives the event title
	body    *template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("Mon 02 Jan 2006, 15:04 MST") },
}

const layout = `<!DOCTYPE html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#222">
<p>Hello {{.FirstName}},</p>
{{template "content" .}}
<p style="color:#888;font-size:12px">Event Booking</p>
</body></html>`

func mustTemplate(name, content string) *template.Template {
	t := template.Must(template.New(name).Funcs(funcs).Parse(layout))
	template.Must(t.New("content").Parse(content))
	return t
}

var templates = map[queue.NotificationType]emailTemplate{
	queue.ReservationPending: {
		subject: "Reservation received: %s",
		body: mustTemplate("pending", `
<p>We received your request for <strong>{{.NumberOfSeats}}</strong> seat(s) at <strong>{{.EventTitle}}</strong>
on {{date .EventDate}} in {{.EventLocation}}.</p>
<p>The organiser will review it shortly. You can follow its status <a href="{{.Link}}">here</a>.</p>`),
	},
	queue.ReservationConfirmed: {
		subject: "Your ticket for %s",
		body: mustTemplate("confirmed", `
<p>Your reservation #{{.ReservationID}} for <strong>{{.EventTitle}}</strong> is confirmed.</p>
<p>{{.NumberOfSeats}} seat(s), {{date .EventDate}}, {{.EventLocation}}.</p>
<p>Your ticket is attached. It can also be downloaded from <a href="{{.Link}}">your reservation</a>.</p>`),
	},
	queue.ReservationRefused: {
		subject: "Reservation not accepted: %s",
		body: mustTemplate("refused", `
<p>Unfortunately your request #{{.ReservationID}} for {{.NumberOfSeats}} seat(s) at <strong>{{.EventTitle}}</strong>
on {{date .EventDate}} could not be accepted by the organiser.</p>
<p>You are welcome to <a href="{{.Link}}">look at it again</a> or book another event.</p>`),
	},
	queue.ReservationCanceled: {
		subject: "Reservation canceled: %s",
		body: mustTemplate("canceled", `
<p>Your reservation #{{.ReservationID}} for <strong>{{.EventTitle}}</strong> on {{date .EventDate}} is no longer
active (status {{.Status}}). The {{.NumberOfSeats}} seat(s) have been released.</p>
<p><a href="{{.Link}}">View reservation</a></p>`),
	},
	queue.EventCanceled: {
		subject: "Event canceled: %s",
		body: mustTemplate("event-canceled", `
<p>We are sorry: <strong>{{.EventTitle}}</strong> scheduled for {{date .EventDate}} has been canceled.
Your reservation #{{.ReservationID}} was canceled with it.</p>
<p><a href="{{.Link}}">Browse other events</a></p>`),
	},
}
