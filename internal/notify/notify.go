package notify

import (
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/queue"
)

// MessageType marks guardian-notification jobs on the queue.
const MessageType = "guardian_notification"

// Event is the payload published by the scan handler and consumed by the
// worker.
type Event struct {
	StudentName   string            `json:"student_name"`
	GuardianName  string            `json:"guardian_name"`
	GuardianEmail string            `json:"guardian_email"`
	Status        attendance.Status `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Encode wraps an event into a queue message.
func Encode(evt Event) (queue.Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: MessageType, Body: body}, nil
}

// Decode unwraps a queue message into an event.
func Decode(msg queue.Message) (Event, error) {
	var evt Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// Mailer sends guardian emails over SMTP. A nil Mailer (SMTP not configured)
// silently drops notifications; attendance recording never depends on mail.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewMailer returns a mailer, or nil when SMTP settings are incomplete.
func NewMailer(cfg config.App) *Mailer {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return nil
	}
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

// Send delivers one notification email for an attendance event.
func (m *Mailer) Send(evt Event) error {
	if m == nil {
		return nil
	}
	if evt.GuardianEmail == "" {
		return nil
	}

	guardian := evt.GuardianName
	if guardian == "" {
		guardian = "Parent/Guardian"
	}

	var action string
	switch evt.Status {
	case attendance.StatusCheckIn:
		action = "checked in"
	case attendance.StatusCheckOut:
		action = "checked out"
	default:
		action = string(evt.Status)
	}

	subject := fmt.Sprintf("Attendance: %s %s", evt.StudentName, action)
	body := fmt.Sprintf("Dear %s,\r\n\r\n%s %s at %s.\r\n\r\nThis is an automated notification.\r\n",
		guardian, evt.StudentName, action, evt.Timestamp.Format("Jan 2, 2006 3:04 PM"))

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + evt.GuardianEmail,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var a smtp.Auth
	if m.user != "" {
		a = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, a, m.from, []string{evt.GuardianEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("send notification to %s: %w", evt.GuardianEmail, err)
	}
	return nil
}
