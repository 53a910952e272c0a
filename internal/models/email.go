package models

import (
	"mime"
	"strings"
	"time"
)

// RawMessage is one fetched message in wire format.
type RawMessage struct {
	UID uint32
	Raw []byte
	// ReceivedAt is the parsed Date header, falling back to the server's
	// internal date. Zero when neither is known.
	ReceivedAt time.Time
}

// EmailPart is one leaf of the MIME tree with its payload already decoded.
// Body parts are UTF-8; attachments keep their original bytes and Charset
// names the encoding of text attachments.
type EmailPart struct {
	ContentType string
	Charset     string
	Disposition string
	FileName    string
	Content     []byte
}

// MIMEType is the content type with the charset parameter, when there is one.
func (p *EmailPart) MIMEType() string {
	if p.Charset == "" {
		return p.ContentType
	}
	if formatted := mime.FormatMediaType(p.ContentType, map[string]string{"charset": p.Charset}); formatted != "" {
		return formatted
	}
	return p.ContentType
}

func (p *EmailPart) MediaType() string {
	mediaType, _, _ := strings.Cut(strings.ToLower(p.ContentType), "/")
	return mediaType
}

func (p *EmailPart) SubType() string {
	_, subType, _ := strings.Cut(strings.ToLower(p.ContentType), "/")
	return subType
}

func (p *EmailPart) IsAttachment() bool {
	return strings.EqualFold(strings.TrimSpace(p.Disposition), "attachment")
}

func (p *EmailPart) Is(contentType string) bool {
	return strings.EqualFold(p.ContentType, contentType)
}

// Email is the read-only parsed view over a RawMessage.
type Email struct {
	UID     uint32
	Subject string
	From    string
	// Date is the raw header value, never reformatted.
	Date  string
	Parts []*EmailPart
	// ParseErr is set when the MIME structure could not be read and Parts
	// holds the raw message as a single text/plain part instead.
	ParseErr error
}

// FirstBodyPart returns the first non-attachment part of the given content type.
func (e *Email) FirstBodyPart(contentType string) *EmailPart {
	for _, part := range e.Parts {
		if part.Is(contentType) && !part.IsAttachment() {
			return part
		}
	}
	return nil
}

// Attachments returns parts flagged as attachments that carry a filename.
func (e *Email) Attachments() []*EmailPart {
	var attachments []*EmailPart
	for _, part := range e.Parts {
		if part.IsAttachment() && part.FileName != "" {
			attachments = append(attachments, part)
		}
	}
	return attachments
}
