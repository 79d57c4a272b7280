package handlers

// HandlerBundle aggregates the HTTP handlers so route registration takes a
// single dependency.
type HandlerBundle struct {
	Session *SessionHandler
	Payment *PaymentHandler
	Admin   *AdminHandler
}
