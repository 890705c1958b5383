package backend

import "context"

// Backend is a translation engine. Exactly one backend is selected per run.
type Backend interface {
	// Init prepares the backend. No translation is accepted before it succeeds.
	Init(ctx context.Context) error
	Translate(ctx context.Context, text string) (string, error)
	Close() error
}

// Mode names a backend variant.
type Mode string

const (
	ModeAPI     Mode = "api"
	ModeBrowser Mode = "browser"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAPI, ModeBrowser:
		return Mode(s), nil
	default:
		return "", NewError(KindUnknown, "unsupported mode").WithContext("mode", s)
	}
}
