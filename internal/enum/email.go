package enum

type EmailSecurity string

const (
	EmailSecurityNone     EmailSecurity = "none"
	EmailSecuritySSL      EmailSecurity = "ssl"
	EmailSecurityStartTLS EmailSecurity = "startTLS"
)

func (t EmailSecurity) String() string {
	return string(t)
}

// SecurityForPort maps the well-known submission ports to their encryption mode.
func SecurityForPort(port int) EmailSecurity {
	switch port {
	case 465:
		return EmailSecuritySSL
	default:
		return EmailSecurityStartTLS
	}
}

type ForwardOutcome string

const (
	ForwardOutcomeForwarded ForwardOutcome = "forwarded"
	ForwardOutcomeSkipped   ForwardOutcome = "skipped"
	ForwardOutcomeAborted   ForwardOutcome = "aborted"
)

func (t ForwardOutcome) String() string {
	return string(t)
}
