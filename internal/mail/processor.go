package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/dialog"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

const (
	defaultIntent   = "k_mail_channel"
	defaultTemplate = `<p>{{.bot_response}}</p>`
	defaultSMTPPort = 587
)

type (
	// Decrypter opens the mail channel password sealed at import.
	Decrypter interface {
		Decrypt(token string) (string, error)
	}

	Options struct {
		Store  store.Store
		Engine dialog.Engine
		Sender mailer.Sender
		Secret Decrypter
		Dial   Dialer
		// Workers bounds concurrent SMTP replies.
		Workers int
		// Rate caps replies per second; 0 means unlimited.
		Rate  float64
		Clock func() time.Time
	}

	// Processor runs one poll of a bot's inbox.
	Processor struct {
		store   store.Store
		engine  dialog.Engine
		sender  mailer.Sender
		secret  Decrypter
		dial    Dialer
		workers int
		limiter *rate.Limiter
		now     func() time.Time
	}

	// Result summarises one poll.
	Result struct {
		Processed    int
		Failed       int
		LastEmailUID uint32
	}

	request struct {
		MailID  uint32 `json:"mail_id"`
		Subject string `json:"subject"`
		Date    string `json:"date"`
		Body    string `json:"body"`
	}
)

func NewProcessor(opts Options) *Processor {
	if opts.Dial == nil {
		opts.Dial = DialIMAP
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Workers)
	}
	return &Processor{
		store:   opts.Store,
		engine:  opts.Engine,
		sender:  opts.Sender,
		secret:  opts.Secret,
		dial:    opts.Dial,
		workers: opts.Workers,
		limiter: limiter,
		now:     opts.Clock,
	}
}

// Process reads new mail for bot, answers it and advances the UID cursor.
func (p *Processor) Process(ctx context.Context, bot string) (*Result, error) {
	var cfg model.MailChannelConfig
	if err := p.store.FindOne(ctx, model.CollectionMailChannelConfig, store.Active(bot), &cfg); err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return nil, errx.Ef(errx.KindConfigNotFound, "mail channel is not configured for bot %s", bot)
		}
		return nil, err
	}
	if err := p.unseal(&cfg); err != nil {
		return nil, err
	}
	state, err := p.State(ctx, bot)
	if err != nil {
		return nil, err
	}

	box, err := p.dial(ctx, cfg)
	if err != nil {
		return nil, errx.E(errx.KindIntegrationFailure, "mail login failed", err)
	}
	defer func() {
		if err := box.Close(); err != nil {
			logx.Warn().Err(err).Str("bot", bot).Msg("imap logout failed")
		}
	}()

	since := p.now().Add(-interval(cfg))
	uids, err := box.Search(ctx, Criteria(cfg, state.LastEmailUID, since))
	if err != nil {
		return nil, errx.E(errx.KindIntegrationFailure, "mail search failed", err)
	}
	fresh := newer(uids, state.LastEmailUID)
	res := &Result{LastEmailUID: state.LastEmailUID}
	if len(fresh) == 0 {
		return res, nil
	}

	emails, err := box.Fetch(ctx, fresh)
	if err != nil {
		return nil, errx.E(errx.KindIntegrationFailure, "mail fetch failed", err)
	}
	sort.Slice(emails, func(i, j int) bool { return emails[i].UID < emails[j].UID })

	// A batch stops at the first email whose log cannot be opened; that
	// email and the ones after it stay above the cursor for the next poll.
	var halted error
	msgs := make([]dialog.Message, 0, len(emails))
	kept := emails[:0]
	for _, e := range emails {
		if e.UID <= state.LastEmailUID {
			continue
		}
		text, err := Synthetic(intent(cfg), e)
		if err != nil {
			halted = err
			break
		}
		if err := p.openLog(ctx, bot, e); err != nil {
			halted = err
			break
		}
		msgs = append(msgs, dialog.Message{SenderID: e.From, Text: text})
		kept = append(kept, e)
		if e.UID > res.LastEmailUID {
			res.LastEmailUID = e.UID
		}
	}
	emails = kept
	if halted != nil {
		logx.Error().Err(halted).Str("bot", bot).Int("kept", len(emails)).Msg("mail batch cut short")
	}
	if len(emails) == 0 {
		return res, halted
	}

	replies, err := p.engine.ProcessBatch(ctx, bot, dialog.ChannelMail, msgs)
	if err != nil {
		for _, e := range emails {
			p.closeLog(ctx, bot, e.UID, nil, nil, err)
		}
		res.Failed = len(emails)
	} else {
		res.Processed, res.Failed = p.reply(ctx, cfg, emails, replies)
	}

	if err := p.store.Update(ctx, model.CollectionMailChannelState, bson.M{"bot": bot},
		bson.M{"last_email_uid": res.LastEmailUID}, true); err != nil {
		return res, err
	}
	logx.Info().Str("bot", bot).Int("processed", res.Processed).Int("failed", res.Failed).
		Uint32("last_email_uid", res.LastEmailUID).Msg("mail channel polled")
	return res, halted
}

func (p *Processor) unseal(cfg *model.MailChannelConfig) error {
	if cfg.EmailPassword == "" {
		return nil
	}
	if p.secret == nil {
		return errx.Ef(errx.KindMissingSecret, "no cipher configured for the mail channel of bot %s", cfg.Bot)
	}
	plain, err := p.secret.Decrypt(cfg.EmailPassword)
	if err != nil {
		return errx.E(errx.KindMissingSecret, "mail channel password could not be decrypted", err)
	}
	cfg.EmailPassword = plain
	return nil
}

// State returns the inbox cursor of bot, zero valued before the first poll.
func (p *Processor) State(ctx context.Context, bot string) (*model.MailChannelState, error) {
	var st model.MailChannelState
	err := p.store.FindOne(ctx, model.CollectionMailChannelState, bson.M{"bot": bot}, &st)
	if err != nil && !errors.Is(err, errx.ErrNotFound) {
		return nil, err
	}
	st.Bot = bot
	return &st, nil
}

// reply renders and sends one answer per email; replies pair with emails by position.
func (p *Processor) reply(ctx context.Context, cfg model.MailChannelConfig, emails []Email, replies []dialog.Reply) (int, int) {
	tmpl, err := template.New("reply").Parse(replyTemplate(cfg))
	if err != nil {
		tmpl = template.Must(template.New("reply").Parse(defaultTemplate))
		logx.Warn().Err(err).Str("bot", cfg.Bot).Msg("invalid mail reply template, using default")
	}
	server := mailer.Server{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailAccount,
		Password: cfg.EmailPassword,
		TLS:      true,
	}
	if server.Port == 0 {
		server.Port = defaultSMTPPort
	}

	failed := make([]bool, len(emails))
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, e := range emails {
		if i >= len(replies) {
			failed[i] = true
			p.closeLog(ctx, cfg.Bot, e.UID, nil, nil, errors.New("no response from dialog engine"))
			continue
		}
		r := replies[i]
		g.Go(func() error {
			err := p.limiter.Wait(ctx)
			if err == nil {
				err = p.send(ctx, tmpl, server, cfg.EmailAccount, e, r)
			}
			failed[i] = err != nil
			p.closeLog(ctx, cfg.Bot, e.UID, r.Slots, r.Texts(), err)
			return nil
		})
	}
	_ = g.Wait()

	ok, bad := 0, 0
	for _, f := range failed {
		if f {
			bad++
		} else {
			ok++
		}
	}
	return ok, bad
}

func (p *Processor) send(ctx context.Context, tmpl *template.Template, server mailer.Server, from string, e Email, r dialog.Reply) error {
	data := make(map[string]any, len(r.Slots)+1)
	for k, v := range r.Slots {
		data[k] = v
	}
	data["bot_response"] = strings.Join(r.Texts(), "\n")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render reply: %w", err)
	}
	return p.sender.Send(ctx, server, mailer.Message{
		From:    from,
		To:      []string{e.From},
		Subject: "Re: " + e.Subject,
		HTML:    buf.String(),
	})
}

func (p *Processor) openLog(ctx context.Context, bot string, e Email) error {
	_, err := p.store.Insert(ctx, model.CollectionMailResponseLog, model.MailResponseLog{
		Bot:       bot,
		Sender:    e.From,
		UID:       e.UID,
		Subject:   e.Subject,
		Body:      e.Body,
		Status:    model.MailProcessing,
		Timestamp: p.now().UTC(),
	})
	return err
}

func (p *Processor) closeLog(ctx context.Context, bot string, uid uint32, slots map[string]any, responses []string, cause error) {
	set := bson.M{"status": model.MailSuccess, "timestamp": p.now().UTC()}
	if slots != nil {
		set["slots"] = slots
	}
	if responses != nil {
		set["responses"] = responses
	}
	if cause != nil {
		set["status"] = model.MailFailed
		set["exception"] = cause.Error()
		logx.Error().Err(cause).Str("bot", bot).Uint32("uid", uid).Msg("mail reply failed")
	}
	if err := p.store.Update(context.WithoutCancel(ctx), model.CollectionMailResponseLog,
		bson.M{"bot": bot, "uid": uid}, set, false); err != nil {
		logx.Error().Err(err).Str("bot", bot).Uint32("uid", uid).Msg("failed to update mail response log")
	}
}

// Synthetic builds the user message the dialog engine receives for e.
func Synthetic(intent string, e Email) (string, error) {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(request{
		MailID:  e.UID,
		Subject: e.Subject,
		Date:    e.Date.Format(time.RFC3339),
		Body:    e.Body,
	})
	if err != nil {
		return "", err
	}
	return "/" + intent + body, nil
}

func newer(uids []uint32, last uint32) []uint32 {
	out := make([]uint32, 0, len(uids))
	for _, u := range uids {
		if u > last {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func intent(cfg model.MailChannelConfig) string {
	if cfg.Intent != "" {
		return cfg.Intent
	}
	return defaultIntent
}

func interval(cfg model.MailChannelConfig) time.Duration {
	if cfg.Interval > 0 {
		return time.Duration(cfg.Interval) * time.Minute
	}
	return time.Minute
}

func replyTemplate(cfg model.MailChannelConfig) string {
	if cfg.ReplyTemplate != "" {
		return cfg.ReplyTemplate
	}
	return defaultTemplate
}
