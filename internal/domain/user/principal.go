package user

// Principal is the opaque authenticated identity the gatekeeper hands the
// engine. The engine never authenticates; it only trusts this.
type Principal struct {
	UserID string
	Name   string
}
