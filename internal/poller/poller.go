// Package poller drains the support inbox on a fixed schedule. Each cycle opens
// one mailbox session and processes unseen messages strictly one at a time.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"mailtriage/internal/cache"
	"mailtriage/internal/config"
	"mailtriage/internal/inbox"
	"mailtriage/internal/metrics"
	"mailtriage/internal/models"
	"mailtriage/internal/triage"

	"github.com/rs/zerolog"
)

// processedTTL is how long a stored Message-ID is remembered
const processedTTL = 24 * time.Hour

// processedMessage identifies a stored message. A Message-ID alone is not
// trusted; broken mailers reuse them.
type processedMessage struct {
	recordID string
	sender   string
	subject  string
}

func (m processedMessage) matches(msg *inbox.Message) bool {
	return m.sender == msg.From && m.subject == msg.Subject
}

// Processor runs the triage pipeline for one inbound message
type Processor interface {
	ProcessInbound(ctx context.Context, in models.InboundEmail) (*triage.Outcome, error)
}

// CycleResult summarizes one poll cycle
type CycleResult struct {
	Listed       int `json:"listed"`
	Deferred     int `json:"deferred"` // over the per-cycle limit, left unseen for the next cycle
	Skipped      int `json:"skipped"`  // not started before the cycle deadline, left unseen
	Stored       int `json:"stored"`
	Duplicates   int `json:"duplicates"`
	DecodeErrors int `json:"decode_errors"`
	NotForwarded int `json:"not_forwarded"`
	StoreErrors  int `json:"store_errors"`
	MarkedSeen   int `json:"marked_seen"`
}

// Poller owns the polling flag and the inbox loop
type Poller struct {
	transport      inbox.Transport
	processor      Processor
	interval       time.Duration
	cycleTimeout   time.Duration
	messageTimeout time.Duration
	maxPerCycle    int
	active         atomic.Bool
	processed      *cache.Cache[processedMessage]
	logger         zerolog.Logger
}

// New creates a poller; the flag starts at cfg.PollingEnabled
func New(transport inbox.Transport, processor Processor, cfg *config.Config, logger zerolog.Logger) *Poller {
	p := &Poller{
		transport:      transport,
		processor:      processor,
		interval:       cfg.PollInterval(),
		cycleTimeout:   cfg.PollCycleTimeout(),
		messageTimeout: cfg.PollMessageTimeout(),
		maxPerCycle:    cfg.PollMaxPerCycle,
		processed:      cache.New[processedMessage](),
		logger:         logger.With().Str("component", "poller").Logger(),
	}
	p.active.Store(cfg.PollingEnabled)
	return p
}

// SetActive toggles polling. Takes effect at the next cycle boundary.
func (p *Poller) SetActive(active bool) {
	if p.active.Swap(active) != active {
		p.logger.Info().Bool("active", active).Msg("Email polling toggled")
	}
}

// Active reports the polling flag
func (p *Poller) Active() bool {
	return p.active.Load()
}

// Run ticks every interval, measured from cycle start, until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Bool("active", p.Active()).Msg("Poller started")
	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.Active() {
		p.logger.Debug().Msg("Email polling is paused")
		return
	}

	result, err := p.RunCycle(ctx)
	if err != nil {
		p.logger.Error().Err(err).Interface("result", result).Msg("Poll cycle aborted")
		return
	}
	if result.Listed > 0 {
		p.logger.Info().Interface("result", result).Msg("Poll cycle complete")
	}
}

// RunCycle runs one cycle regardless of the flag. A transport failure aborts the
// cycle; messages already handled stay marked, the rest stay unseen. The cycle
// deadline and ctx are checked between messages only: a message that has been
// started is always finished under its own context.
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	start := time.Now()
	defer func() { metrics.RecordPollCycle(time.Since(start)) }()

	cycleCtx := ctx
	if p.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, p.cycleTimeout)
		defer cancel()
	}

	p.processed.Purge()

	session, err := p.transport.Open(cycleCtx)
	if err != nil {
		metrics.IncrementPollCycleFailure()
		return result, fmt.Errorf("failed to open mailbox: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close mailbox session")
		}
	}()

	uids, err := session.ListUnseen(cycleCtx)
	if err != nil {
		metrics.IncrementPollCycleFailure()
		return result, fmt.Errorf("failed to list unseen messages: %w", err)
	}
	result.Listed = len(uids)

	queue := p.enqueue(uids)
	result.Deferred = len(uids) - len(queue)
	if result.Listed > 0 {
		p.logger.Info().Int("unseen", result.Listed).Int("queued", len(queue)).Msg("Found unread emails")
	}

	for uid := range queue {
		if err := cycleCtx.Err(); err != nil {
			result.Skipped = len(queue) + 1
			metrics.IncrementPollCycleFailure()
			return result, fmt.Errorf("%w: poll cycle interrupted: %v", models.ErrTransport, err)
		}
		if err := p.handleDetached(ctx, session, uid, &result); err != nil {
			metrics.IncrementPollCycleFailure()
			return result, err
		}
	}

	return result, nil
}

// handleDetached runs handle under a context that survives cancellation of the
// cycle, bounded only by the per-message timeout
func (p *Poller) handleDetached(ctx context.Context, session inbox.Session, uid uint32, result *CycleResult) error {
	msgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if p.messageTimeout > 0 {
		msgCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), p.messageTimeout)
	}
	defer cancel()

	return p.handle(msgCtx, session, uid, result)
}

// enqueue fills a bounded work queue in listing order
func (p *Poller) enqueue(uids []uint32) chan uint32 {
	size := len(uids)
	if p.maxPerCycle > 0 && size > p.maxPerCycle {
		size = p.maxPerCycle
	}

	queue := make(chan uint32, size)
	for _, uid := range uids[:size] {
		queue <- uid
	}
	close(queue)
	return queue
}

// handle processes one message and marks it seen. Only transport errors are returned.
func (p *Poller) handle(ctx context.Context, session inbox.Session, uid uint32, result *CycleResult) error {
	log := p.logger.With().Uint32("uid", uid).Logger()

	msg, err := session.Fetch(ctx, uid)
	if err != nil {
		if errors.Is(err, models.ErrTransport) {
			return err
		}
		result.DecodeErrors++
		log.Warn().Err(err).Msg("Message only partly decoded, processing what was read")
		if msg == nil {
			msg = &inbox.Message{UID: uid, Date: time.Now()}
		}
	}
	log = log.With().Str("message_id", msg.MessageID).Logger()

	if seen, ok := p.lookupProcessed(msg); ok && seen.matches(msg) {
		result.Duplicates++
		log.Warn().Str("record_id", seen.recordID).Msg("Message already stored, marking seen without storing again")
	} else {
		if ok {
			log.Warn().Str("record_id", seen.recordID).Msg("Message-ID reused by a different message, processing it")
		}
		p.process(ctx, msg, result, log)
	}

	if err := session.MarkSeen(ctx, uid); err != nil {
		return err
	}
	result.MarkedSeen++
	return nil
}

func (p *Poller) process(ctx context.Context, msg *inbox.Message, result *CycleResult, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			result.StoreErrors++
			log.Error().Interface("panic", r).Msg("Message processing panicked")
		}
	}()

	outcome, err := p.processor.ProcessInbound(ctx, msg.ToInbound())
	if err != nil {
		result.StoreErrors++
		log.Error().Err(err).Msg("Message processed but not stored")
		return
	}

	result.Stored++
	if !outcome.Forwarded {
		result.NotForwarded++
	}
	if msg.MessageID != "" {
		p.processed.Set(msg.MessageID, processedMessage{
			recordID: outcome.Record.ID,
			sender:   msg.From,
			subject:  msg.Subject,
		}, processedTTL)
	}
}

func (p *Poller) lookupProcessed(msg *inbox.Message) (processedMessage, bool) {
	if msg.MessageID == "" {
		return processedMessage{}, false
	}
	return p.processed.Get(msg.MessageID)
}
