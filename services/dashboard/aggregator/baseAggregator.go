package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetOrCreate("aggregator")

// ArgsAggregator is the DTO used to create a metric aggregator
type ArgsAggregator struct {
	Client   UpstreamClient
	Metrics  MetricsRecorder
	TTL      time.Duration
	Location *time.Location
}

type baseAggregator struct {
	name     string
	client   UpstreamClient
	metrics  MetricsRecorder
	ttl      time.Duration
	location *time.Location
	nowFunc  func() time.Time
}

func newBaseAggregator(name string, args ArgsAggregator) (*baseAggregator, error) {
	if check.IfNil(args.Client) {
		return nil, errNilUpstreamClient
	}
	if check.IfNil(args.Metrics) {
		return nil, errNilMetricsRecorder
	}
	if args.TTL <= 0 {
		return nil, errInvalidTTL
	}
	if args.Location == nil {
		return nil, errNilLocation
	}

	return &baseAggregator{
		name:     name,
		client:   args.Client,
		metrics:  args.Metrics,
		ttl:      args.TTL,
		location: args.Location,
		nowFunc:  time.Now,
	}, nil
}

// checkPreconditions returns a config error when the aggregation can not even start
func (ba *baseAggregator) checkPreconditions(siteIDs []int) error {
	if len(siteIDs) == 0 {
		return common.NewConfigError(common.ErrEmptySiteList)
	}

	return ba.client.CheckConfig()
}

// fanOut calls fetch concurrently for every site. The returned errors are indexed as the provided site list. Failed
// sites are logged and counted; the aggregation as a whole fails only if no site succeeded
func (ba *baseAggregator) fanOut(
	ctx context.Context,
	siteIDs []int,
	fetch func(ctx context.Context, index int, idSite int) error,
) error {
	errs := make([]error, len(siteIDs))

	var eg errgroup.Group
	for i, idSite := range siteIDs {
		i, idSite := i, idSite
		eg.Go(func() error {
			// per-site failures are isolated, never propagated through the group
			errs[i] = fetch(ctx, i, idSite)
			return nil
		})
	}
	_ = eg.Wait()

	numFailed := 0
	var lastErr error
	for i, err := range errs {
		if err == nil {
			continue
		}

		numFailed++
		lastErr = err
		ba.metrics.RecordSiteFailure(ba.name)
		log.Warn("site fetch failed, using zero values", "metric", ba.name, "idSite", siteIDs[i], "error", err)
	}

	if numFailed == len(siteIDs) {
		return &common.UpstreamError{
			Reason: fmt.Sprintf("%s: %s, last error: %s", ba.name, common.ErrAllSitesFailed.Error(), lastErr.Error()),
		}
	}

	log.Debug("aggregation done", "metric", ba.name, "sites", len(siteIDs), "failed", numFailed)

	return nil
}

func (ba *baseAggregator) updatedAt() string {
	return ba.nowFunc().In(ba.location).Format(time.RFC3339)
}

func (ba *baseAggregator) ttlSeconds() int {
	return int(ba.ttl / time.Second)
}

func siteParams(idSite int, extra map[string]string) map[string]string {
	params := map[string]string{
		common.ParamIDSite: strconv.Itoa(idSite),
	}
	for key, value := range extra {
		params[key] = value
	}

	return params
}
