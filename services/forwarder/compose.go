package forwarder

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailforward/internal/logger"
	"github.com/customeros/mailforward/internal/models"
	"github.com/customeros/mailforward/internal/tracing"
	"github.com/customeros/mailforward/internal/utils"
)

const (
	forwardedMarker   = "---------- Forwarded message ---------"
	plainTextFallback = "This message was forwarded as HTML; see the HTML version."
)

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyHTML
	bodyPlainText
)

// bodySelection is the outcome of picking the forwarded body.
type bodySelection struct {
	kind bodyKind
	html string
}

type Composer struct {
	fromAddress string
	toAddress   string
	log         logger.Logger
}

func NewComposer(fromAddress, toAddress string, log logger.Logger) *Composer {
	return &Composer{fromAddress: fromAddress, toAddress: toAddress, log: log}
}

func (c *Composer) Compose(ctx context.Context, email *models.Email) (*models.ForwardedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Composer.Compose")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email == nil {
		err := errors.New("email cannot be nil")
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("uid", email.UID)

	body := selectBody(email)
	span.SetTag("body.kind", int(body.kind))

	forwarded := &models.ForwardedEmail{
		SourceUID:   email.UID,
		FromAddress: c.fromAddress,
		ToAddress:   c.toAddress,
		Subject:     utils.ForwardSubject(email.Subject),
		BodyText:    plainTextFallback,
		BodyHTML:    c.assembleHTML(headerBlock(email), body),
	}

	for _, part := range email.Attachments() {
		forwarded.Attachments = append(forwarded.Attachments, &models.EmailAttachment{
			Filename:    utils.CleanFilename(part.FileName),
			ContentType: part.MIMEType(),
			Content:     part.Content,
		})
	}
	span.SetTag("attachments", len(forwarded.Attachments))

	return forwarded, nil
}

// selectBody prefers HTML, then plain text wrapped in <pre>, then nothing.
func selectBody(email *models.Email) bodySelection {
	if part := email.FirstBodyPart("text/html"); part != nil {
		return bodySelection{kind: bodyHTML, html: string(part.Content)}
	}
	if part := email.FirstBodyPart("text/plain"); part != nil {
		return bodySelection{kind: bodyPlainText, html: "<pre>" + html.EscapeString(string(part.Content)) + "</pre>"}
	}
	return bodySelection{kind: bodyNone}
}

func headerBlock(email *models.Email) string {
	var sb strings.Builder
	sb.WriteString(`<div class="forwarded-header"><p>`)
	sb.WriteString(forwardedMarker)
	sb.WriteString("<br>\r\n")
	fmt.Fprintf(&sb, "From: %s<br>\r\n", html.EscapeString(utils.CleanHeader(email.From)))
	fmt.Fprintf(&sb, "Date: %s<br>\r\n", html.EscapeString(email.Date))
	fmt.Fprintf(&sb, "Subject: %s", html.EscapeString(utils.CleanHeader(email.Subject)))
	sb.WriteString("</p></div><br>\r\n")
	return sb.String()
}

// assembleHTML puts the header block first. A complete HTML document gets the
// block inserted at the top of its <body> so the result stays well-formed.
func (c *Composer) assembleHTML(header string, body bodySelection) string {
	if body.kind != bodyHTML || !isDocument(body.html) {
		return header + body.html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body.html))
	if err != nil {
		c.log.Debugf("could not parse HTML body, prepending header block: %v", err)
		return header + body.html
	}

	doc.Find("body").First().PrependHtml(header)
	out, err := doc.Html()
	if err != nil {
		c.log.Debugf("could not render HTML body, prepending header block: %v", err)
		return header + body.html
	}
	return out
}

func isDocument(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<body") || strings.Contains(lower, "<html")
}
