package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/queue"
)

func event(email string) queue.RegistrationConfirmed {
	ev := queue.RegistrationConfirmed{
		EventID:    "ev-1",
		TeamNumber: "101",
		Selections: []model.Selection{
			{VenueName: "Venue 2", VenueKind: model.VenueRegular, DayLabel: "Day 1"},
			{VenueName: "Venue 1", VenueKind: model.VenueRegular, DayLabel: "Day 2"},
			{VenueName: "Gauss", VenueKind: model.VenueChampionship, DayLabel: "Day 1"},
		},
		Summary:   "League: Gauss - Day 1\nVenue 1 - Day 2\nVenue 2 - Day 1",
		CreatedAt: "2026-10-16T10:00:00Z",
	}
	if email != "" {
		ev.Email = &queue.EmailJob{To: email, Subject: "Registration confirmed for team 101", Text: ev.Summary, HTML: "<p>hi</p>"}
	}
	return ev
}

func TestNormalizeFrom(t *testing.T) {
	cases := map[string]string{
		"League <  league@example.com >":   "League <league@example.com>",
		"league@example.com":               "league@example.com",
		"League Office league@example.com": "League Office <league@example.com>",
		"not an address":                   DefaultFrom,
		"":                                 DefaultFrom,
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeFrom(in), "input %q", in)
	}
}

func TestNewMailer_FallsBackToLogWithoutCredentials(t *testing.T) {
	require.IsType(t, LogMailer{}, NewMailer(config.NotifyConfig{MailProvider: "resend"}))
	require.IsType(t, LogMailer{}, NewMailer(config.NotifyConfig{MailProvider: "smtp"}))
	require.IsType(t, LogMailer{}, NewMailer(config.NotifyConfig{MailProvider: "pigeon"}))
	require.IsType(t, &ResendMailer{}, NewMailer(config.NotifyConfig{MailProvider: "Resend", ResendAPIKey: "k"}))
	require.IsType(t, &SMTPMailer{}, NewMailer(config.NotifyConfig{MailProvider: "smtp", SMTPHost: "mx"}))
}

type resendBody struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

func TestResendMailer_Send(t *testing.T) {
	var got resendBody
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("key", srv.URL, srv.Client())
	require.NoError(t, err)
	sink := NewMailSink(m, "League league@example.com")
	require.NoError(t, sink.Send(context.Background(), event("coach@example.com")))

	require.Equal(t, "Bearer key", auth)
	require.Equal(t, "/emails", path)
	require.Equal(t, "League <league@example.com>", got.From)
	require.Equal(t, []string{"coach@example.com"}, got.To)
	require.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendMailer_Non2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("key", srv.URL, srv.Client())
	require.NoError(t, err)
	err = m.Send(context.Background(), Message{From: "a@b.co", To: "c@d.co"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "resend")
}

// captureSMTP records the message instead of dialing a relay.
func captureSMTP(got **mail.Msg) *SMTPMailer {
	return &SMTPMailer{Host: "mx.example.com", Port: 2525, User: "u", Pass: "p",
		send: func(_ context.Context, msg *mail.Msg) error {
			*got = msg
			return nil
		}}
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPMailer_BuildsMultipart(t *testing.T) {
	var msg *mail.Msg
	m := captureSMTP(&msg)

	require.NoError(t, NewMailSink(m, "League <league@example.com>").Send(context.Background(), event("coach@example.com")))
	require.NotNil(t, msg)

	from, err := msg.GetSender(false)
	require.NoError(t, err)
	require.Equal(t, "league@example.com", from)
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"coach@example.com"}, rcpts)

	raw := render(t, msg)
	require.Contains(t, raw, "multipart/alternative")
	require.Contains(t, raw, "text/html")
	require.Contains(t, raw, "League: Gauss - Day 1")
}

func TestSMTPMailer_SubjectCannotAddHeaders(t *testing.T) {
	var msg *mail.Msg
	m := captureSMTP(&msg)

	require.NoError(t, m.Send(context.Background(), Message{
		From:    "league@example.com",
		To:      "coach@example.com",
		Subject: "Registration confirmed for team 1\r\nBcc: x@ev.io",
		Text:    "hi",
	}))

	raw := render(t, msg)
	require.NotContains(t, raw, "\r\nBcc:")
	require.NotContains(t, raw, "\nBcc:")
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"coach@example.com"}, rcpts)
}

func TestSingleLine(t *testing.T) {
	require.Equal(t, "team 1  Bcc: x", singleLine("team 1\r\nBcc: x"))
	require.Equal(t, "Registration confirmed for team 101", singleLine("Registration confirmed for team 101"))
}

func TestMailSink_SkipsEventsWithoutEmail(t *testing.T) {
	called := false
	m := &SMTPMailer{Host: "mx", send: func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}}
	require.NoError(t, NewMailSink(m, "").Send(context.Background(), event("")))
	require.False(t, called)
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramSink_Send(t *testing.T) {
	bot := &fakeBot{}
	s := &TelegramSink{bot: bot, chatID: 42}

	require.NoError(t, s.Send(context.Background(), event("")))
	require.Len(t, bot.sent, 1)
	require.Equal(t, int64(42), bot.sent[0].ChatID)
	require.True(t, strings.HasPrefix(bot.sent[0].Text, "New registration: team 101\nLeague: Gauss"))
}

type fakeRows struct {
	rows [][]interface{}
}

func (f *fakeRows) Append(_ context.Context, row []interface{}) error {
	f.rows = append(f.rows, row)
	return nil
}

func TestSheetsSink_RowLayout(t *testing.T) {
	rows := &fakeRows{}
	s := &SheetsSink{rows: rows}

	require.NoError(t, s.Send(context.Background(), event("coach@example.com")))
	require.Equal(t, []interface{}{
		"2026-10-16T10:00:00Z", "101", "coach@example.com", "Gauss - Day 1", "Venue 1 - Day 2", "Venue 2 - Day 1",
	}, rows.rows[0])
}

type sinkFunc struct {
	name string
	fn   func() error
	n    int
}

func (s *sinkFunc) Name() string { return s.name }
func (s *sinkFunc) Send(context.Context, queue.RegistrationConfirmed) error {
	s.n++
	return s.fn()
}

func TestDispatcher_IsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	a := &sinkFunc{name: "a", fn: func() error { return boom }}
	b := &sinkFunc{name: "b", fn: func() error { return nil }}
	d := NewDispatcher(a, nil, b)

	err := d.Handle(context.Background(), event(""))
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "a: boom")
	require.Equal(t, 1, a.n)
	require.Equal(t, 1, b.n, "later sinks still run")
	require.Equal(t, "a,b", d.Names())
}

func TestFromConfig_DefaultsToMailOnly(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetEnabled(true)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	d := FromConfig(context.Background(), config.NotifyConfig{MailProvider: "log"})
	require.Equal(t, "mail", d.Names())
	require.NotContains(t, buf.String(), "sinks ready", "startup summary is logged by the server")
}
