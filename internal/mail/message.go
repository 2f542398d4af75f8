package mail

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	gomessage "github.com/emersion/go-message/mail"

	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

// Email is the part of an inbound message the channel works with.
type Email struct {
	UID     uint32
	From    string
	Subject string
	Date    time.Time
	Body    string
}

// ParseEmail reads an RFC 5322 message. The body is the first text/plain
// part, or the first text/html part with tags stripped.
func ParseEmail(uid uint32, r io.Reader) (Email, error) {
	mr, err := gomessage.CreateReader(r)
	if err != nil {
		return Email{}, fmt.Errorf("parse mail %d: %w", uid, err)
	}
	defer mr.Close()

	e := Email{UID: uid}
	if e.Subject, err = mr.Header.Subject(); err != nil {
		e.Subject = mr.Header.Get("Subject")
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		e.From = from[0].Address
	}
	if e.From == "" {
		return Email{}, fmt.Errorf("parse mail %d: missing sender", uid)
	}
	if d, err := mr.Header.Date(); err == nil {
		e.Date = d.UTC()
	}

	var htmlBody string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Email{}, fmt.Errorf("parse mail %d: %w", uid, err)
		}
		h, ok := p.Header.(*gomessage.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil {
			ct = "text/plain"
		}
		raw, err := io.ReadAll(p.Body)
		if err != nil {
			return Email{}, fmt.Errorf("read mail %d body: %w", uid, err)
		}
		switch ct {
		case "text/plain":
			if e.Body == "" {
				e.Body = strings.TrimSpace(string(raw))
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = mailer.PlainText(string(raw))
			}
		}
	}
	if e.Body == "" {
		e.Body = htmlBody
	}
	return e, nil
}
