// Package mail is the e-mail channel: it polls a bot's inbox over IMAP,
// feeds new messages to the dialog engine and replies over SMTP.
package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// Seen status filters accepted in MailChannelConfig.SeenStatus.
const (
	SeenStatusAll    = "ALL"
	SeenStatusSeen   = "SEEN"
	SeenStatusUnseen = "UNSEEN"
)

const (
	defaultIMAPPort = 993
	imapTimeout     = 30 * time.Second
)

type (
	// Mailbox is an open, selected inbox.
	Mailbox interface {
		Search(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error)
		Fetch(ctx context.Context, uids []uint32) ([]Email, error)
		Close() error
	}

	// Dialer opens the inbox described by cfg.
	Dialer func(ctx context.Context, cfg model.MailChannelConfig) (Mailbox, error)

	imapMailbox struct {
		c *client.Client
	}
)

// DialIMAP logs in over implicit TLS and selects INBOX.
func DialIMAP(_ context.Context, cfg model.MailChannelConfig) (Mailbox, error) {
	port := cfg.IMAPPort
	if port == 0 {
		port = defaultIMAPPort
	}
	c, err := client.DialTLS(net.JoinHostPort(cfg.IMAPServer, strconv.Itoa(port)), nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", cfg.IMAPServer, err)
	}
	c.Timeout = imapTimeout
	if err := c.Login(cfg.EmailAccount, cfg.EmailPassword); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login %s: %w", cfg.EmailAccount, err)
	}
	if _, err := c.Select(imap.InboxName, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap select inbox: %w", err)
	}
	return &imapMailbox{c: c}, nil
}

func (m *imapMailbox) Search(_ context.Context, criteria *imap.SearchCriteria) ([]uint32, error) {
	return m.c.UidSearch(criteria)
}

func (m *imapMailbox) Fetch(_ context.Context, uids []uint32) ([]Email, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	set := new(imap.SeqSet)
	set.AddNum(uids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(set, items, messages)
	}()

	out := make([]Email, 0, len(uids))
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		e, err := ParseEmail(msg.Uid, body)
		if err != nil {
			logx.Warn().Err(err).Uint32("uid", msg.Uid).Msg("skipping unparsable mail")
			continue
		}
		out = append(out, e)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return out, nil
}

func (m *imapMailbox) Close() error {
	return m.c.Logout()
}

// Criteria builds the compound search for one poll. With a known cursor it
// asks for UIDs above it; otherwise for mail received within interval.
func Criteria(cfg model.MailChannelConfig, lastUID uint32, since time.Time) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	switch cfg.SeenStatus {
	case SeenStatusSeen:
		c.WithFlags = []string{imap.SeenFlag}
	case SeenStatusUnseen:
		c.WithoutFlags = []string{imap.SeenFlag}
	}

	if lastUID > 0 {
		c.Uid = new(imap.SeqSet)
		c.Uid.AddRange(lastUID+1, 0)
	} else {
		c.Since = since
	}

	matchAny(c, "Subject", cfg.Subjects)
	matchAny(c, "From", cfg.FromEmails)
	c.Not = append(c.Not, headerCriteria("Subject", cfg.IgnoreSubjects)...)
	c.Not = append(c.Not, headerCriteria("From", cfg.IgnoreFromEmails)...)
	return c
}

func headerCriteria(key string, values []string) []*imap.SearchCriteria {
	out := make([]*imap.SearchCriteria, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		c := imap.NewSearchCriteria()
		c.Header.Add(key, v)
		out = append(out, c)
	}
	return out
}

// matchAny requires header key to contain one of values. Every pair in Or
// is its own condition, so subject and sender alternatives combine with AND.
func matchAny(c *imap.SearchCriteria, key string, values []string) {
	cs := headerCriteria(key, values)
	switch len(cs) {
	case 0:
		return
	case 1:
		c.Header.Add(key, cs[0].Header.Get(key))
		return
	}
	acc := cs[0]
	for _, next := range cs[1:] {
		acc = &imap.SearchCriteria{Or: [][2]*imap.SearchCriteria{{acc, next}}}
	}
	c.Or = append(c.Or, acc.Or[0])
}
