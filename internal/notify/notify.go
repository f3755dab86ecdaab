// Package notify decides what outbound email looks like and hands it to a
// transport. Services depend on Dispatcher only.
package notify

import (
	"context"
	"net/url"
)

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Dispatcher

// Template names one of the embedded email templates.
type Template string

const (
	TemplateClaimVerification   Template = "claim_verification"
	TemplateMatchFound          Template = "match_found"
	TemplateRemovalConfirmation Template = "removal_confirmation"
	TemplateContactAccess       Template = "contact_access"
	TemplatePremiumActivated    Template = "premium_activated"
)

// Message is a templated email to one recipient.
type Message struct {
	Template Template          `json:"template"`
	To       string            `json:"to"`
	Data     map[string]string `json:"data"`
}

// Dispatcher sends messages. Implementations may deliver immediately or queue.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Links builds frontend URLs embedded in emails.
type Links struct {
	BaseURL string
}

func (l Links) with(path, token string) string {
	return l.BaseURL + path + "?token=" + url.QueryEscape(token)
}

// Verify is the claim verification page.
func (l Links) Verify(token string) string { return l.with("/verify", token) }

// Remove is the removal confirmation page.
func (l Links) Remove(token string) string { return l.with("/remove", token) }
