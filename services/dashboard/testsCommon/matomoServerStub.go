package testsCommon

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
)

// MatomoResponder returns the status code and the body for one Matomo API call
type MatomoResponder func(method string, idSite string, query url.Values) (int, string)

// MatomoServerStub is a fake Matomo HTTP API
type MatomoServerStub struct {
	*httptest.Server
	numCalls  int64
	mut       sync.RWMutex
	responder MatomoResponder
}

// NewMatomoServerStub starts a fake Matomo API answering with the provided responder
func NewMatomoServerStub(responder MatomoResponder) *MatomoServerStub {
	stub := &MatomoServerStub{
		responder: responder,
	}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.serve))

	return stub
}

func (stub *MatomoServerStub) serve(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&stub.numCalls, 1)

	query := r.URL.Query()
	stub.mut.RLock()
	responder := stub.responder
	stub.mut.RUnlock()

	status, body := responder(query.Get("method"), query.Get("idSite"), query)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// SetResponder replaces the responder
func (stub *MatomoServerStub) SetResponder(responder MatomoResponder) {
	stub.mut.Lock()
	stub.responder = responder
	stub.mut.Unlock()
}

// NumCalls returns the number of received requests
func (stub *MatomoServerStub) NumCalls() int64 {
	return atomic.LoadInt64(&stub.numCalls)
}
