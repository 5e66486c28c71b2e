package core

// Logger is the application-wide logging contract.
// Implementations may ship entries to an external error tracker; Enable
// toggles that shipping (stdout output is always on).
//
// args may contain an error, extra context values, or an Account (picked up
// as the reporting identity by implementations that support one).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Account identifies the portal account this process syncs for.
type Account struct {
	ID    string
	Name  string
	Email string
}
