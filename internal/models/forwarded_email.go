package models

// ForwardedEmail is the message handed to the relay.
type ForwardedEmail struct {
	SourceUID   uint32
	FromAddress string
	ToAddress   string
	Subject     string
	BodyText    string
	BodyHTML    string
	Attachments []*EmailAttachment
}

func (e *ForwardedEmail) HasAttachment() bool {
	return len(e.Attachments) > 0
}
