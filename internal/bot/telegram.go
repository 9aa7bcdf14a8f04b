package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/scheduler"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/signal"

	tele "gopkg.in/telebot.v3"
)

func StartTelegramBot(signalService *signal.Service, sched *scheduler.Scheduler) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/signals", func(c tele.Context) error {
		signals, err := signalService.ListSignals(context.Background(), time.Now().UTC())
		if err != nil {
			return c.Send(fmt.Sprintf("Error evaluating signals: %v", err))
		}
		return c.Send(formatSignals(signals))
	})

	b.Handle("/latest", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /latest vix\nKnown: %s", strings.Join(indicatorIDs(), ", ")))
		}
		id := domain.IndicatorID(strings.ToLower(args[0]))
		if !domain.KnownIndicator(id) {
			return c.Send(fmt.Sprintf("Unknown indicator: %s\nKnown: %s", args[0], strings.Join(indicatorIDs(), ", ")))
		}
		sig, err := signalService.EvaluateIndicator(context.Background(), id, time.Now().UTC())
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching %s: %v", id, err))
		}
		msg := fmt.Sprintf(
			"%s\nValue: %.2f %s\nSignal: %s\nAs of: %s",
			sig.Title, sig.Value, sig.Unit, strings.ToUpper(string(sig.Class)), sig.AsOf.Format("2006-01-02"),
		)
		if sig.Stale {
			msg += "\n(stale reading)"
		}
		return c.Send(msg)
	})

	b.Handle("/fetch", func(c tele.Context) error {
		if sched.Trigger() {
			return c.Send("Fetch queued")
		}
		if sched.State() == scheduler.StateStopped {
			return c.Send("Scheduler is stopped")
		}
		return c.Send("A fetch is already pending")
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func formatSignals(signals []domain.Signal) string {
	if len(signals) == 0 {
		return "No indicator data yet. Try /fetch first."
	}
	var sb strings.Builder
	for _, s := range signals {
		marker := "•"
		switch s.Class {
		case domain.SignalTop:
			marker = "🔴"
		case domain.SignalBottom:
			marker = "🟢"
		}
		sb.WriteString(fmt.Sprintf("%s %s: %.2f %s (%s)", marker, s.Title, s.Value, s.Unit, s.Class))
		if s.Stale {
			sb.WriteString(" [stale]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func indicatorIDs() []string {
	out := make([]string, 0, len(domain.Indicators()))
	for _, ind := range domain.Indicators() {
		out = append(out, string(ind.ID))
	}
	return out
}
