package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/dialog"
	"github.com/Chative-core-poc-v1/actionserver/internal/scheduler"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

const testBot = "bot_mail"

type (
	fakeBox struct {
		uids     []uint32
		emails   map[uint32]Email
		criteria *imap.SearchCriteria
		fetched  []uint32
		closed   bool
		password string
	}

	fakeEngine struct {
		msgs []dialog.Message
		err  error
	}

	outbox struct {
		mu     sync.Mutex
		sent   []mailer.Message
		server mailer.Server
		fail   string
	}

	// logFailStore refuses to open mail response logs for one UID.
	logFailStore struct {
		*memstore.Store
		failUID uint32
	}
)

func (s *logFailStore) Insert(ctx context.Context, collection string, doc any) (string, error) {
	if l, ok := doc.(model.MailResponseLog); ok && l.UID == s.failUID {
		return "", errors.New("log collection unavailable")
	}
	return s.Store.Insert(ctx, collection, doc)
}

func (b *fakeBox) Search(_ context.Context, c *imap.SearchCriteria) ([]uint32, error) {
	b.criteria = c
	return b.uids, nil
}

func (b *fakeBox) Fetch(_ context.Context, uids []uint32) ([]Email, error) {
	b.fetched = uids
	out := make([]Email, 0, len(uids))
	for _, u := range uids {
		out = append(out, b.emails[u])
	}
	return out, nil
}

func (b *fakeBox) Close() error {
	b.closed = true
	return nil
}

func (e *fakeEngine) ProcessBatch(_ context.Context, _, channel string, msgs []dialog.Message) ([]dialog.Reply, error) {
	e.msgs = msgs
	if e.err != nil {
		return nil, e.err
	}
	out := make([]dialog.Reply, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dialog.Reply{
			SenderID:  m.SenderID,
			Slots:     map[string]any{"channel": channel},
			Responses: []map[string]any{{"text": "Thanks for writing"}},
		})
	}
	return out, nil
}

func (e *fakeEngine) TriggerFlow(context.Context, string, string, string, map[string]any) error {
	return nil
}

func (o *outbox) Send(_ context.Context, server mailer.Server, msgs ...mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.server = server
	for _, m := range msgs {
		if m.To[0] == o.fail {
			return errors.New("mailbox unavailable")
		}
		o.sent = append(o.sent, m)
	}
	return nil
}

func inbox(uids ...uint32) *fakeBox {
	b := &fakeBox{uids: uids, emails: map[uint32]Email{}}
	for _, u := range uids {
		b.emails[u] = Email{
			UID:     u,
			From:    "user" + string(rune('a'+u%26)) + "@example.com",
			Subject: "Order status",
			Date:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Body:    "where is my order?",
		}
	}
	return b
}

func setup(t *testing.T, box *fakeBox, lastUID uint32) (store.Store, *fakeEngine, *outbox, *Processor) {
	t.Helper()
	return setupWith(t, memstore.New(), box, lastUID)
}

func setupWith(t *testing.T, st store.Store, box *fakeBox, lastUID uint32) (store.Store, *fakeEngine, *outbox, *Processor) {
	t.Helper()
	ctx := context.Background()
	cipher, err := keyvault.NewCipher("mail-test-secret")
	require.NoError(t, err)
	sealed, err := cipher.Encrypt("app-password")
	require.NoError(t, err)
	_, err = st.Insert(ctx, model.CollectionMailChannelConfig, model.MailChannelConfig{
		Bot:           testBot,
		EmailAccount:  "support@example.com",
		EmailPassword: sealed,
		SMTPServer:    "smtp.example.com",
		Interval:      5,
		Intent:        "order_query",
		ReplyTemplate: `<p>{{.bot_response}} via {{.channel}}</p>`,
		Status:        true,
	})
	require.NoError(t, err)
	if lastUID > 0 {
		_, err = st.Insert(ctx, model.CollectionMailChannelState, model.MailChannelState{Bot: testBot, LastEmailUID: lastUID})
		require.NoError(t, err)
	}
	engine := &fakeEngine{}
	out := &outbox{}
	p := NewProcessor(Options{
		Store:  st,
		Engine: engine,
		Sender: out,
		Secret: cipher,
		Dial: func(_ context.Context, cfg model.MailChannelConfig) (Mailbox, error) {
			box.password = cfg.EmailPassword
			return box, nil
		},
		Clock: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	return st, engine, out, p
}

func logs(t *testing.T, st store.Store) []model.MailResponseLog {
	t.Helper()
	var out []model.MailResponseLog
	require.NoError(t, st.Find(context.Background(), model.CollectionMailResponseLog,
		bson.M{"bot": testBot}, store.FindOptions{SortBy: "uid"}, &out))
	return out
}

func TestProcessAnswersNewMail(t *testing.T) {
	t.Parallel()
	box := inbox(9, 10, 11, 12)
	st, engine, out, p := setup(t, box, 9)

	res, err := p.Process(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, &Result{Processed: 3, LastEmailUID: 12}, res)
	assert.Equal(t, []uint32{10, 11, 12}, box.fetched)
	assert.True(t, box.closed)
	assert.Equal(t, "10:*", box.criteria.Uid.String())

	require.Len(t, engine.msgs, 3)
	assert.True(t, strings.HasPrefix(engine.msgs[0].Text, `/order_query{"mail_id":10,"subject":"Order status"`))

	assert.Equal(t, "app-password", box.password)
	assert.Equal(t, "app-password", out.server.Password)
	assert.Equal(t, "support@example.com", out.server.Username)

	require.Len(t, out.sent, 3)
	for _, m := range out.sent {
		assert.Equal(t, "support@example.com", m.From)
		assert.Equal(t, "Re: Order status", m.Subject)
		assert.Equal(t, "<p>Thanks for writing via mail</p>", m.HTML)
	}

	entries := logs(t, st)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, model.MailSuccess, e.Status)
		assert.Equal(t, []string{"Thanks for writing"}, e.Responses)
	}

	state, err := p.State(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), state.LastEmailUID)
}

func TestProcessKeepsCursorWhenNothingNew(t *testing.T) {
	t.Parallel()
	box := inbox(7)
	_, engine, out, p := setup(t, box, 9)

	res, err := p.Process(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), res.LastEmailUID)
	assert.Nil(t, engine.msgs)
	assert.Empty(t, out.sent)
}

func TestProcessFirstPollSearchesByDate(t *testing.T) {
	t.Parallel()
	box := inbox(3)
	_, _, _, p := setup(t, box, 0)

	res, err := p.Process(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), res.LastEmailUID)
	assert.Nil(t, box.criteria.Uid)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 55, 0, 0, time.UTC), box.criteria.Since)
}

func TestProcessSendFailureMarksLog(t *testing.T) {
	t.Parallel()
	box := inbox(10, 11)
	st, _, out, p := setup(t, box, 9)
	out.fail = box.emails[11].From

	res, err := p.Process(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, uint32(11), res.LastEmailUID)

	entries := logs(t, st)
	require.Len(t, entries, 2)
	assert.Equal(t, model.MailSuccess, entries[0].Status)
	assert.Equal(t, model.MailFailed, entries[1].Status)
	assert.Contains(t, entries[1].Exception, "mailbox unavailable")
}

func TestProcessEngineFailure(t *testing.T) {
	t.Parallel()
	box := inbox(10)
	st, engine, out, p := setup(t, box, 9)
	engine.err = errors.New("engine down")

	res, err := p.Process(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, out.sent)
	entries := logs(t, st)
	require.Len(t, entries, 1)
	assert.Equal(t, model.MailFailed, entries[0].Status)
}

func TestProcessStopsAtUnloggableEmail(t *testing.T) {
	t.Parallel()
	box := inbox(10, 11, 12)
	st, engine, out, p := setupWith(t, &logFailStore{Store: memstore.New(), failUID: 11}, box, 9)

	res, err := p.Process(context.Background(), testBot)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, uint32(10), res.LastEmailUID)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, engine.msgs, 1)
	require.Len(t, out.sent, 1)

	entries := logs(t, st)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(10), entries[0].UID)
	assert.Equal(t, model.MailSuccess, entries[0].Status)

	state, err := p.State(context.Background(), testBot)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), state.LastEmailUID)
}

func TestProcessRejectsUnreadablePassword(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	_, err := st.Insert(context.Background(), model.CollectionMailChannelConfig, model.MailChannelConfig{
		Bot: testBot, EmailPassword: "plaintext", Status: true,
	})
	require.NoError(t, err)
	cipher, err := keyvault.NewCipher("mail-test-secret")
	require.NoError(t, err)
	dialed := false
	p := NewProcessor(Options{Store: st, Secret: cipher, Dial: func(context.Context, model.MailChannelConfig) (Mailbox, error) {
		dialed = true
		return inbox(), nil
	}})

	_, err = p.Process(context.Background(), testBot)
	assert.True(t, errx.IsKind(err, errx.KindMissingSecret))
	assert.False(t, dialed)
}

func TestProcessWithoutConfig(t *testing.T) {
	t.Parallel()
	p := NewProcessor(Options{Store: memstore.New()})
	_, err := p.Process(context.Background(), "nobody")
	require.Error(t, err)
}

func TestCriteria(t *testing.T) {
	t.Parallel()
	cfg := model.MailChannelConfig{
		SeenStatus:       SeenStatusUnseen,
		Subjects:         []string{"order", "refund"},
		FromEmails:       []string{"vip@example.com"},
		IgnoreSubjects:   []string{"newsletter"},
		IgnoreFromEmails: []string{"noreply@example.com", ""},
	}
	c := Criteria(cfg, 41, time.Time{})
	assert.Equal(t, []string{imap.SeenFlag}, c.WithoutFlags)
	assert.Equal(t, "42:*", c.Uid.String())
	require.Len(t, c.Or, 1)
	assert.Equal(t, "order", c.Or[0][0].Header.Get("Subject"))
	assert.Equal(t, "refund", c.Or[0][1].Header.Get("Subject"))
	assert.Equal(t, "vip@example.com", c.Header.Get("From"))
	require.Len(t, c.Not, 2)
	assert.Equal(t, "newsletter", c.Not[0].Header.Get("Subject"))
	assert.Equal(t, "noreply@example.com", c.Not[1].Header.Get("From"))
}

func TestParseEmail(t *testing.T) {
	t.Parallel()
	raw := strings.Join([]string{
		"From: Jane <jane@example.com>",
		"Subject: Refund request",
		"Date: Wed, 01 May 2024 10:00:00 +0000",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Please refund</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Please refund order 42",
		"--b1--",
		"",
	}, "\r\n")

	e, err := ParseEmail(7, strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), e.UID)
	assert.Equal(t, "jane@example.com", e.From)
	assert.Equal(t, "Refund request", e.Subject)
	assert.Equal(t, "Please refund order 42", e.Body)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), e.Date)

	htmlOnly := "From: a@example.com\r\nSubject: hi\r\nContent-Type: text/html\r\n\r\n<b>Hello</b> there\r\n"
	e, err = ParseEmail(8, strings.NewReader(htmlOnly))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", e.Body)

	_, err = ParseEmail(9, strings.NewReader("Subject: anonymous\r\n\r\nbody\r\n"))
	assert.Error(t, err)
}

func TestScheduleRegistersPollJob(t *testing.T) {
	t.Parallel()
	box := inbox()
	st, _, _, p := setup(t, box, 0)
	s := scheduler.New(scheduler.Options{Store: st, Collection: model.CollectionMailJobs})
	ctx := context.Background()
	cfg := model.MailChannelConfig{Bot: testBot, Interval: 5}

	id, err := p.Schedule(ctx, s, cfg)
	require.NoError(t, err)
	job, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, scheduler.EventMailRead, job.JobState.EventClass)
	assert.Equal(t, "*/5 * * * *", job.JobState.Trigger.CronExp)

	again, err := p.Schedule(ctx, s, model.MailChannelConfig{Bot: testBot, Interval: 120})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	job, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0 */2 * * *", job.JobState.Trigger.CronExp)

	require.NoError(t, p.Unschedule(ctx, s, testBot))
	_, err = s.Get(ctx, id)
	assert.Error(t, err)
}

func TestHandlerRequiresBot(t *testing.T) {
	t.Parallel()
	p := NewProcessor(Options{Store: memstore.New()})
	err := p.Handler()(context.Background(), scheduler.Job{ID: "j1"})
	assert.Error(t, err)
}
