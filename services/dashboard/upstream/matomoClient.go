package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

const (
	entryPoint         = "/index.php"
	defaultMessage     = "upstream reported an error"
	maxResponseBodyLen = 10 * 1024 * 1024
)

var log = logger.GetOrCreate("upstream")

// ArgsMatomoClient is the DTO used to create a new Matomo client
type ArgsMatomoClient struct {
	BaseURL    string
	TokenAuth  string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Metrics    MetricsRecorder
}

type matomoClient struct {
	baseURL    string
	tokenAuth  string
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	metrics    MetricsRecorder
	client     *http.Client
}

// NewMatomoClient creates a new Matomo API client with bounded retries. Missing connection settings are not an error
// here, they are reported by CheckConfig and by every Call
func NewMatomoClient(args ArgsMatomoClient) (*matomoClient, error) {
	if args.Timeout <= 0 {
		return nil, errInvalidTimeout
	}
	if args.MaxRetries < 0 {
		return nil, errInvalidMaxRetries
	}
	if args.RetryDelay < 0 {
		return nil, errInvalidRetryDelay
	}
	if check.IfNil(args.Metrics) {
		return nil, errNilMetricsRecorder
	}

	return &matomoClient{
		baseURL:    strings.TrimRight(args.BaseURL, "/"),
		tokenAuth:  args.TokenAuth,
		userAgent:  args.UserAgent,
		maxRetries: args.MaxRetries,
		retryDelay: args.RetryDelay,
		metrics:    args.Metrics,
		client: &http.Client{
			Timeout: args.Timeout,
		},
	}, nil
}

// CheckConfig returns a config error if the base URL or the auth token is missing
func (mc *matomoClient) CheckConfig() error {
	if len(mc.baseURL) == 0 || len(mc.tokenAuth) == 0 {
		return common.NewConfigError(common.ErrMissingConnectionSettings)
	}

	return nil
}

// Call invokes the provided API method and returns the raw, valid JSON response. Transport failures and malformed
// responses are retried, errors reported by the API are not
func (mc *matomoClient) Call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	err := mc.CheckConfig()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := mc.callWithRetries(ctx, method, mc.buildURL(method, params))
	mc.metrics.RecordUpstreamCall(method, err, time.Since(start))

	return body, err
}

func (mc *matomoClient) buildURL(method string, params map[string]string) string {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	// protocol parameters always win over the caller's ones
	values.Set("module", "API")
	values.Set("method", method)
	values.Set("format", "JSON")
	values.Set("token_auth", mc.tokenAuth)

	return mc.baseURL + entryPoint + "?" + values.Encode()
}

func (mc *matomoClient) callWithRetries(ctx context.Context, method string, requestURL string) ([]byte, error) {
	attempts := mc.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := mc.doRequest(ctx, requestURL)
		if err == nil {
			return body, nil
		}

		var appErr applicationError
		if errors.As(err, &appErr) {
			log.Debug("upstream reported an error", "method", method, "message", appErr.Error())
			return nil, &common.UpstreamError{Reason: appErr.Error()}
		}

		lastErr = err
		log.Debug("upstream attempt failed", "method", method, "attempt", attempt, "of", attempts, "error", err)

		if attempt == attempts {
			break
		}

		err = mc.wait(ctx)
		if err != nil {
			lastErr = err
			break
		}
	}

	return nil, &common.UpstreamError{
		Reason: fmt.Sprintf("%s failed (%d retries): %s", method, mc.maxRetries, lastErr.Error()),
	}
}

func (mc *matomoClient) wait(ctx context.Context) error {
	timer := time.NewTimer(mc.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mc *matomoClient) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, stripURL(err)
	}
	if len(mc.userAgent) > 0 {
		req.Header.Set("User-Agent", mc.userAgent)
	}

	resp, err := mc.client.Do(req)
	if err != nil {
		return nil, stripURL(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	if gjson.GetBytes(body, "result").String() == "error" {
		message := gjson.GetBytes(body, "message").String()
		if len(message) == 0 {
			message = defaultMessage
		}

		return nil, applicationError(message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errStatusNotOK(resp.StatusCode)
	}

	return body, nil
}

// stripURL removes the request URL from transport errors as it carries the auth token
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}

// IsInterfaceNil returns true if the value under the interface is nil
func (mc *matomoClient) IsInterfaceNil() bool {
	return mc == nil
}
