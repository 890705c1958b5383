package browser

import (
	"context"
	"net/url"
	"strings"
)

// Response is a network response observed inside a tab.
type Response struct {
	URL      string
	Method   string
	PostData string
	Status   int
	Body     []byte
}

// Observer receives every response the tab sees for the watched endpoint.
type Observer func(Response)

// Tab is one live page holding the translation input.
type Tab interface {
	// Type focuses the input and sends text as key events.
	Type(ctx context.Context, text string) error
	// Clear empties the input.
	Clear(ctx context.Context) error
	Close() error
}

// Driver opens tabs. ctx bounds only the opening; the tab lives until Close.
type Driver interface {
	Open(ctx context.Context, observe Observer) (Tab, error)
}

type session struct {
	id   int
	tab  Tab
	uses int
}

// requestQuery recovers the "q" parameter of the request behind resp.
func requestQuery(resp Response) (string, bool) {
	var q string
	switch strings.ToUpper(resp.Method) {
	case "POST":
		values, err := url.ParseQuery(resp.PostData)
		if err != nil {
			return "", false
		}
		q = values.Get("q")
	case "GET", "":
		u, err := url.Parse(resp.URL)
		if err != nil {
			return "", false
		}
		q = u.Query().Get("q")
	default:
		return "", false
	}
	if q == "" {
		return "", false
	}
	return q, true
}
