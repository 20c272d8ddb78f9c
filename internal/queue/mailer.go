package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Mail is a rendered plain text message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered mail.  SMTP delivery lives outside this service;
// the default implementation appends to a log file.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// FileMailer appends every mail as one line to a file, creating the
// directory on first use.
type FileMailer struct {
	mu   sync.Mutex
	path string
}

// NewFileMailer returns a mailer writing to path, defaulting to
// logs/mail.log.
func NewFileMailer(path string) *FileMailer {
	if path == "" {
		path = filepath.Join("logs", "mail.log")
	}
	return &FileMailer{path: path}
}

func (f *FileMailer) Send(_ context.Context, m Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("[%s] to=%q subject=%q body=%q\n",
		time.Now().UTC().Format(time.RFC3339), m.To, m.Subject, m.Body)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}

// RenderTicketMail builds the confirmation mail for a ticket.
func RenderTicketMail(ev TicketIssuedEvent) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", ev.ParticipantName)
	fmt.Fprintf(&b, "Your registration for %s is confirmed.\n", ev.EventName)
	fmt.Fprintf(&b, "Ticket: %s\n", ev.TicketID)
	if !ev.EventDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", ev.EventDate.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
	}
	if ev.AmountPaid > 0 {
		fmt.Fprintf(&b, "Amount paid: %d\n", ev.AmountPaid)
	}
	b.WriteString("\nShow the QR code below at the venue.\n")
	b.WriteString(ev.QRPayload)
	b.WriteString("\n")
	return Mail{
		To:      ev.ParticipantEmail,
		Subject: fmt.Sprintf("Your ticket for %s (%s)", ev.EventName, ev.TicketID),
		Body:    b.String(),
	}
}
