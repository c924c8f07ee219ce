package upstream

import (
	"errors"
	"net/http"
)

var errNilMetricsRecorder = errors.New("nil metrics recorder")
var errInvalidTimeout = errors.New("invalid upstream timeout")
var errInvalidMaxRetries = errors.New("invalid upstream max retries")
var errInvalidRetryDelay = errors.New("invalid upstream retry delay")
var errInvalidJSON = errors.New("response body is not valid JSON")

type errStatusNotOK int

func (e errStatusNotOK) Error() string {
	return "non-2xx HTTP status code: " + http.StatusText(int(e))
}

// applicationError is a well-formed error reported by the upstream API. It is never retried
type applicationError string

func (e applicationError) Error() string {
	return string(e)
}
