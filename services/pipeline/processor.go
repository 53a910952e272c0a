package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/customeros/mailforward/interfaces"
	"github.com/customeros/mailforward/internal/enum"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
	"github.com/customeros/mailforward/internal/utils"
	"github.com/customeros/mailforward/services/forwarder"
	"github.com/customeros/mailforward/services/imap"
)

type Processor struct {
	reader      *imap.Reader
	parser      interfaces.EmailParser
	forwarder   *forwarder.Forwarder
	window      time.Duration
	mailboxUser string
	log         logger.Logger
	now         func() time.Time

	mu   sync.RWMutex
	last *models.RunResult
}

func NewProcessor(reader *imap.Reader, parser interfaces.EmailParser, forwarder *forwarder.Forwarder, window time.Duration, mailboxUser string, log logger.Logger) *Processor {
	return &Processor{
		reader:      reader,
		parser:      parser,
		forwarder:   forwarder,
		window:      window,
		mailboxUser: mailboxUser,
		log:         log,
		now:         time.Now,
	}
}

// LastResult returns the outcome of the most recent run, or nil before the first one.
func (p *Processor) LastResult() *models.RunResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run forwards every in-window unseen message once. The returned error is
// non-nil only when the run was aborted; per-message send failures are
// counted in the result and the message stays unseen for the next run.
func (p *Processor) Run(ctx context.Context) (*models.RunResult, error) {
	started := p.now()
	result := &models.RunResult{RunID: utils.GenerateRunID(started), StartedAt: started}

	ctx = utils.WithRunContext(ctx, &utils.RunContext{RunID: result.RunID, MailboxUser: p.mailboxUser})
	span, ctx := tracing.StartTracerSpan(ctx, "Processor.Run")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)

	log := p.log.With(zap.String("run_id", result.RunID))
	log.Infof("Forwarding run started for %s", p.mailboxUser)

	err := p.run(ctx, log, result)

	result.FinishedAt = p.now()
	span.SetTag("candidates", result.Candidates)
	span.SetTag("forwarded", result.Forwarded)
	span.SetTag("skipped", result.Skipped)
	tracing.LogObjectAsJson(span, "result", result)

	if err != nil {
		result.Aborted = true
		result.LastError = err
		tracing.TraceErr(span, err)
		log.Errorf("Forwarding run aborted (%s): %v; forwarded %d, skipped %d of %d",
			fwderrors.Kind(err), err, result.Forwarded, result.Skipped, result.Candidates)
	} else {
		log.Infof("Forwarding run finished: forwarded %d, skipped %d of %d",
			result.Forwarded, result.Skipped, result.Candidates)
	}

	p.mu.Lock()
	p.last = result
	p.mu.Unlock()

	return result, err
}

func (p *Processor) run(ctx context.Context, log logger.Logger, result *models.RunResult) error {
	session, err := p.reader.Open(ctx)
	if err != nil {
		return asConnectionError(err, "opening mailbox")
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warnf("closing mailbox session: %v", closeErr)
		}
	}()

	candidates, err := session.FetchCandidates(ctx, p.window)
	if err != nil {
		return asConnectionError(err, "searching unseen messages")
	}
	log.Infof("%d unseen message(s) in mailbox", candidates.Unseen())

	relay := p.forwarder.NewSession()
	defer relay.Close()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fwderrors.Connection(ctxErr, "run interrupted")
		}

		raw, err := candidates.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return asConnectionError(err, "fetching message")
		}
		result.Candidates++

		msgLog := log.With(zap.Uint32("uid", raw.UID))
		subject, err := p.forwardOne(ctx, msgLog, session, relay, raw)
		if err == nil {
			result.Forwarded++
			msgLog.With(zap.String("outcome", enum.ForwardOutcomeForwarded.String())).Infof("Forwarded %q", subject)
			continue
		}
		if fwderrors.IsFatal(err) {
			msgLog.With(zap.String("outcome", enum.ForwardOutcomeAborted.String())).Errorf("Aborting at %q: %v", subject, err)
			return err
		}
		result.Skipped++
		result.LastError = err
		msgLog.With(zap.String("outcome", enum.ForwardOutcomeSkipped.String())).Warnf("Skipped %q, left unseen: %v", subject, err)
	}

	log.Debugf("%d message(s) outside the window left unseen", candidates.Filtered())
	return nil
}

// forwardOne parses, forwards and marks one message. It marks the message
// seen only after the relay accepted it.
func (p *Processor) forwardOne(ctx context.Context, log logger.Logger, session *imap.Session, relay *forwarder.Session, raw *models.RawMessage) (string, error) {
	email := p.parser.Parse(ctx, raw)
	if email.ParseErr != nil {
		log.Warnf("Forwarding raw text: %v", email.ParseErr)
	}

	if err := relay.Forward(ctx, email); err != nil {
		return email.Subject, err
	}

	if err := session.MarkSeen(ctx, raw.UID); err != nil {
		return email.Subject, asConnectionError(err, "marking message seen")
	}
	return email.Subject, nil
}

func asConnectionError(err error, msg string) error {
	if fwderrors.IsFatal(err) {
		return err
	}
	return fwderrors.Connection(err, msg)
}
