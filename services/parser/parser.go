package parser

import (
	"bytes"
	"context"
	"io"
	"net/mail"

	"github.com/emersion/go-message"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"

	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
	"github.com/customeros/mailforward/internal/utils"
)

const defaultContentType = "text/plain"

type EmailParser struct {
	log          logger.Logger
	readEnvelope func(r io.Reader) (*enmime.Envelope, error)
	// readRawParts leaves part content exactly as transmitted: no transfer
	// decoding and no charset conversion.
	readRawParts func(r io.Reader) (*enmime.Part, error)
}

func NewEmailParser(log logger.Logger) *EmailParser {
	return &EmailParser{
		log:          log,
		readEnvelope: enmime.ReadEnvelope,
		readRawParts: enmime.NewParser(enmime.RawContent(true)).ReadParts,
	}
}

// Parse never fails: a message enmime cannot read comes back with ParseErr
// set and the raw bytes as its only text/plain part.
func (p *EmailParser) Parse(ctx context.Context, raw *models.RawMessage) *models.Email {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailParser.Parse")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", raw.UID)

	email := &models.Email{UID: raw.UID}

	envelope, err := p.readEnvelope(bytes.NewReader(raw.Raw))
	if err != nil {
		email.ParseErr = fwderrors.Parse(err, "reading MIME structure")
		tracing.TraceErr(span, email.ParseErr)
		p.log.Warnf("uid %d: %v, forwarding raw text instead", raw.UID, email.ParseErr)
		return fallback(email, raw.Raw)
	}

	for _, partErr := range envelope.Errors {
		if partErr.Severe {
			p.log.Warnf("uid %d: MIME problem: %s", raw.UID, partErr.Error())
		} else {
			p.log.Debugf("uid %d: MIME warning: %s", raw.UID, partErr.Error())
		}
	}

	email.Subject = utils.CleanHeader(envelope.GetHeader("Subject"))
	email.From = utils.CleanHeader(envelope.GetHeader("From"))
	if envelope.Root != nil {
		email.Date = envelope.Root.Header.Get("Date")
	}
	email.Parts = collectParts(envelope.Root)
	p.restoreAttachmentBytes(raw, email)

	span.SetTag("parts", len(email.Parts))
	return email
}

// collectParts flattens the MIME tree depth-first, keeping leaves only.
func collectParts(root *enmime.Part) []*models.EmailPart {
	leaves := leafParts(root, nil)
	parts := make([]*models.EmailPart, 0, len(leaves))
	for _, part := range leaves {
		contentType := part.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		parts = append(parts, &models.EmailPart{
			ContentType: contentType,
			Disposition: part.Disposition,
			FileName:    utils.CleanFilename(part.FileName),
			Content:     part.Content,
		})
	}
	return parts
}

func leafParts(part *enmime.Part, leaves []*enmime.Part) []*enmime.Part {
	if part == nil {
		return leaves
	}
	if part.FirstChild == nil {
		leaves = append(leaves, part)
	}
	for child := part.FirstChild; child != nil; child = child.NextSibling {
		leaves = leafParts(child, leaves)
	}
	return leaves
}

// restoreAttachmentBytes replaces attachment payloads with their transfer
// decoded bytes in the stated charset. The envelope reader converts every
// text/* part to UTF-8, attachments included.
func (p *EmailParser) restoreAttachmentBytes(raw *models.RawMessage, email *models.Email) {
	root, err := p.readRawParts(bytes.NewReader(raw.Raw))
	if err != nil {
		p.log.Warnf("uid %d: re-reading attachments failed, keeping converted content: %v", raw.UID, err)
		return
	}

	leaves := leafParts(root, nil)
	if len(leaves) != len(email.Parts) {
		p.log.Warnf("uid %d: MIME trees differ (%d vs %d leaves), keeping converted content", raw.UID, len(leaves), len(email.Parts))
		return
	}

	for i, part := range email.Parts {
		if !part.IsAttachment() {
			continue
		}
		content, err := transferDecode(leaves[i])
		if err != nil {
			p.log.Warnf("uid %d: attachment %q: %v, keeping converted content", raw.UID, part.FileName, err)
			continue
		}
		part.Content = content
		part.Charset = leaves[i].Charset
	}
}

// transferDecode undoes base64 or quoted-printable only. The header handed to
// go-message carries no Content-Type, so no charset conversion happens.
func transferDecode(part *enmime.Part) ([]byte, error) {
	var header message.Header
	if encoding := part.Header.Get("Content-Transfer-Encoding"); encoding != "" {
		header.Set("Content-Transfer-Encoding", encoding)
	}

	entity, err := message.New(header, bytes.NewReader(part.Content))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(entity.Body)
}

// fallback keeps whatever headers net/mail can still read and forwards the
// raw message as plain text.
func fallback(email *models.Email, raw []byte) *models.Email {
	if msg, err := mail.ReadMessage(bytes.NewReader(raw)); err == nil {
		email.Subject = utils.CleanHeader(utils.DecodeHeader(msg.Header.Get("Subject")))
		email.From = utils.CleanHeader(utils.DecodeHeader(msg.Header.Get("From")))
		email.Date = msg.Header.Get("Date")
	}
	email.Parts = []*models.EmailPart{{
		ContentType: defaultContentType,
		Content:     raw,
	}}
	return email
}
