package features

import "howdybot/internal/app/engine"

// Env is the production Runtime: the connection supervisor's public API
// plus the ledger and the configured master admin.
type Env struct {
	*engine.Engine

	Store Ledger
	Admin string
}

// Ledger implements Runtime.
func (e *Env) Ledger() Ledger { return e.Store }

// MasterAdmin implements Runtime.
func (e *Env) MasterAdmin() string { return e.Admin }
