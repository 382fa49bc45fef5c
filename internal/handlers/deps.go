package handlers

import (
	"time"

	"steam_bridge/internal/services"
	"steam_bridge/internal/session"
	"steam_bridge/internal/steam"
)

// Dependencies holds all handler dependencies.
// This reduces constructor parameter lists and simplifies dependency injection.
type Dependencies struct {
	Registry      *session.Registry
	ClientOptions steam.Options
	BalanceParser steam.BalanceParser

	AuditService    *services.AuditService
	CurrencyService *services.CurrencyService

	// OfferPollInterval, when non-zero, starts background offer polling on
	// every logged-in client.
	OfferPollInterval time.Duration
}

// NewDependencies creates an empty Dependencies container.
// Use the builder pattern to set required dependencies.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// WithRegistry sets the session registry.
func (d *Dependencies) WithRegistry(r *session.Registry) *Dependencies {
	d.Registry = r
	return d
}

// WithClientOptions sets the adapter client options for new logins.
func (d *Dependencies) WithClientOptions(opts steam.Options) *Dependencies {
	d.ClientOptions = opts
	return d
}

// WithBalanceParser sets the wallet balance parser.
func (d *Dependencies) WithBalanceParser(p steam.BalanceParser) *Dependencies {
	d.BalanceParser = p
	return d
}

// WithAuditService sets the audit service.
func (d *Dependencies) WithAuditService(s *services.AuditService) *Dependencies {
	d.AuditService = s
	return d
}

// WithCurrencyService sets the currency service.
func (d *Dependencies) WithCurrencyService(s *services.CurrencyService) *Dependencies {
	d.CurrencyService = s
	return d
}

// WithOfferPolling enables background offer polling for new sessions.
func (d *Dependencies) WithOfferPolling(interval time.Duration) *Dependencies {
	d.OfferPollInterval = interval
	return d
}

// audit records an action when an audit service is configured.
func (d *Dependencies) audit(sessionID, steamID, accountName string, action services.AuditAction, entityID string, details any, ip string) {
	if d.AuditService == nil {
		return
	}
	d.AuditService.LogAction(sessionID, steamID, accountName, action, entityID, details, ip)
}
