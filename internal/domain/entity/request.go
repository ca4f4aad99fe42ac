package entity

import "strings"

// Request describes one outbound HTTP fetch.
// Method defaults to GET. BearerToken, when set, is sent as an
// Authorization header.
type Request struct {
	Method      string
	URL         string
	Header      map[string]string
	BearerToken string
}

// MethodOrDefault returns the upper-cased method, or GET when unset.
func (r Request) MethodOrDefault() string {
	if r.Method == "" {
		return "GET"
	}
	return strings.ToUpper(r.Method)
}

// Payload is the body of a successful (2xx) fetch.
type Payload struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte

	// Attempts is the number of attempts it took to obtain the payload.
	Attempts int
}
