package aggregator

import (
	"context"
	"fmt"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/tidwall/gjson"
)

// counterFields are the fields holding the active visits counter, in order of preference
var counterFields = []string{"visits", "nb_visits", "actions"}

type active30Aggregator struct {
	*baseAggregator
}

// NewActive30Aggregator creates the aggregator of the active visits during the last 30 minutes
func NewActive30Aggregator(args ArgsAggregator) (*active30Aggregator, error) {
	base, err := newBaseAggregator(common.KeyActive30, args)
	if err != nil {
		return nil, err
	}

	return &active30Aggregator{
		baseAggregator: base,
	}, nil
}

// Aggregate fetches the live counters of every site and sums them up. The by_site list always has one entry per
// configured site, in configuration order
func (aggr *active30Aggregator) Aggregate(ctx context.Context, siteIDs []int) (interface{}, error) {
	err := aggr.checkPreconditions(siteIDs)
	if err != nil {
		return nil, err
	}

	bySite := make([]common.SiteActive30, len(siteIDs))
	err = aggr.fanOut(ctx, siteIDs, func(ctx context.Context, index int, idSite int) error {
		bySite[index] = common.SiteActive30{IDSite: idSite}

		body, errCall := aggr.client.Call(ctx, common.MethodLiveCounters, siteParams(idSite, map[string]string{
			common.ParamLastMinutes: common.ActiveWindowInMinutes,
		}))
		if errCall != nil {
			return errCall
		}

		value, errParse := parseLiveCounter(body)
		if errParse != nil {
			return errParse
		}

		bySite[index].Active30 = value
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, site := range bySite {
		total += site.Active30
	}

	return &common.Active30Response{
		UpdatedAt:     aggr.updatedAt(),
		TTL:           aggr.ttlSeconds(),
		TotalActive30: total,
		BySite:        bySite,
	}, nil
}

// parseLiveCounter accepts either a record or a one-element array holding a record. Missing counters default to 0
func parseLiveCounter(body []byte) (int, error) {
	record := gjson.ParseBytes(body)
	if record.IsArray() {
		items := record.Array()
		if len(items) != 1 {
			return 0, fmt.Errorf("%w: array with %d elements", common.ErrUnexpectedShape, len(items))
		}

		record = items[0]
	}

	if !record.IsObject() {
		return 0, fmt.Errorf("%w: expected a record", common.ErrUnexpectedShape)
	}

	for _, field := range counterFields {
		value := record.Get(field)
		if value.Exists() && value.Type != gjson.Null {
			return int(value.Int()), nil
		}
	}

	return 0, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (aggr *active30Aggregator) IsInterfaceNil() bool {
	return aggr == nil
}
