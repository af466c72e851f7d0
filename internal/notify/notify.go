// Package notify fans a confirmed registration out to mail, an operator
// Telegram chat and a Google spreadsheet. Each sink is optional and a
// failing sink never stops the others.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/queue"
)

// Sink delivers one event somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev queue.RegistrationConfirmed) error
}

// Dispatcher hands every event to all configured sinks.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher returns a dispatcher over sinks. Nil sinks are dropped.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// FromConfig builds the sinks cfg enables. A sink that cannot be
// initialised is logged and left out.
func FromConfig(ctx context.Context, cfg config.NotifyConfig) *Dispatcher {
	sinks := []Sink{NewMailSink(NewMailer(cfg), cfg.MailFrom)}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.ErrorErr(log.CatNotify, "telegram sink disabled", err)
		} else {
			sinks = append(sinks, tg)
		}
	}

	if cfg.SheetsCredentialsFile != "" && cfg.SheetsSpreadsheetID != "" {
		sh, err := NewSheetsSink(ctx, cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID, cfg.SheetsRange)
		if err != nil {
			log.ErrorErr(log.CatNotify, "sheets sink disabled", err)
		} else {
			sinks = append(sinks, sh)
		}
	}

	return NewDispatcher(sinks...)
}

// Names lists the active sinks, for logging.
func (d *Dispatcher) Names() string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

// Handle sends ev to every sink and joins their errors, each prefixed
// with the sink name. It does not log; the caller reports the result.
func (d *Dispatcher) Handle(ctx context.Context, ev queue.RegistrationConfirmed) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// splitSelections returns the championship line and the regular lines,
// each formatted "venue - day", regular lines ordered by venue name.
func splitSelections(sels []model.Selection) (league string, regular []string) {
	rs := make([]model.Selection, 0, len(sels))
	for _, s := range sels {
		if s.VenueKind == model.VenueChampionship {
			league = s.VenueName + " - " + s.DayLabel
			continue
		}
		rs = append(rs, s)
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].VenueName < rs[j].VenueName })
	for _, s := range rs {
		regular = append(regular, s.VenueName+" - "+s.DayLabel)
	}
	return league, regular
}
