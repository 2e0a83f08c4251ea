package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic/pkg/retry"
)

type DispatcherConfig struct {
	From    string
	Timeout time.Duration
	Retry   retry.Config
}

// Stats counts dispatcher outcomes since start.
type Stats struct {
	Queued  int64 `json:"queued"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Retried int64 `json:"retried"`
}

// Dispatcher sends templated emails in the background. Dispatch never blocks on
// delivery and never reports delivery errors to its caller; failures are
// logged and counted.
type Dispatcher struct {
	sender    EmailSender
	templates *TemplateEngine
	cfg       DispatcherConfig
	logger    zerolog.Logger

	wg      sync.WaitGroup
	queued  atomic.Int64
	sent    atomic.Int64
	failed  atomic.Int64
	retried atomic.Int64
}

func NewDispatcher(sender EmailSender, templates *TemplateEngine, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Dispatcher{sender: sender, templates: templates, cfg: cfg, logger: logger}
}

// Dispatch renders templateID for to and delivers it asynchronously. ref is a
// correlation value (such as a booking id) carried into the logs.
func (d *Dispatcher) Dispatch(templateID, to, ref string, data map[string]string) {
	d.queued.Add(1)
	msg, err := d.templates.Render(templateID, data)
	if err != nil {
		d.failed.Add(1)
		d.logger.Error().Err(err).Str("notification", templateID).Str("ref", ref).Msg("notification render failed")
		return
	}
	msg.ID = uuid.New().String()
	msg.From = d.cfg.From
	msg.To = to
	msg.CreatedAt = time.Now().UTC()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(msg, ref)
	}()
}

func (d *Dispatcher) deliver(msg *Message, ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	cfg := d.cfg.Retry
	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		d.retried.Add(1)
		d.logger.Warn().Err(err).
			Str("notification", msg.Template).
			Str("ref", ref).
			Int("attempt", attempt).
			Dur("next_delay", next).
			Msg("notification send failed, retrying")
	}

	attempts, err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		return d.sender.SendEmail(ctx, msg)
	})
	if err != nil {
		d.failed.Add(1)
		d.logger.Error().Err(err).
			Str("notification", msg.Template).
			Str("ref", ref).
			Str("to", msg.To).
			Int("attempts", attempts).
			Msg("notification delivery failed")
		return
	}
	d.sent.Add(1)
	d.logger.Debug().
		Str("notification", msg.Template).
		Str("ref", ref).
		Str("provider_id", msg.ProviderID).
		Int("attempts", attempts).
		Msg("notification sent")
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:  d.queued.Load(),
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Retried: d.retried.Load(),
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
