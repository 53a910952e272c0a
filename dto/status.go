package dto

import (
	"time"

	"github.com/customeros/mailforward/interfaces"
	fwderrors "github.com/customeros/mailforward/internal/errors"
	"github.com/customeros/mailforward/internal/models"
)

type MailboxStatus struct {
	Connected   bool      `json:"connected"`
	LastError   string    `json:"lastError,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

type RunStatus struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Candidates int       `json:"candidates"`
	Forwarded  int       `json:"forwarded"`
	Skipped    int       `json:"skipped"`
	Aborted    bool      `json:"aborted"`
	LastError  string    `json:"lastError,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
}

type StatusResponse struct {
	Mailbox MailboxStatus `json:"mailbox"`
	LastRun *RunStatus    `json:"lastRun,omitempty"`
}

func NewStatusResponse(mailbox interfaces.MailboxStatus, lastRun *models.RunResult) StatusResponse {
	response := StatusResponse{
		Mailbox: MailboxStatus{
			Connected:   mailbox.Connected,
			LastError:   mailbox.LastError,
			LastChecked: mailbox.LastChecked,
		},
	}
	if lastRun == nil {
		return response
	}

	response.LastRun = &RunStatus{
		RunID:      lastRun.RunID,
		StartedAt:  lastRun.StartedAt,
		FinishedAt: lastRun.FinishedAt,
		Candidates: lastRun.Candidates,
		Forwarded:  lastRun.Forwarded,
		Skipped:    lastRun.Skipped,
		Aborted:    lastRun.Aborted,
	}
	if lastRun.LastError != nil {
		response.LastRun.LastError = lastRun.LastError.Error()
		response.LastRun.ErrorKind = fwderrors.Kind(lastRun.LastError)
	}
	return response
}
