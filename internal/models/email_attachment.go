package models

type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (a *EmailAttachment) Size() int {
	return len(a.Content)
}
