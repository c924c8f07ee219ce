package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/tidwall/gjson"
)

type hourlyAggregator struct {
	*baseAggregator
}

// NewHourlyAggregator creates the aggregator of today's visits per local hour
func NewHourlyAggregator(args ArgsAggregator) (*hourlyAggregator, error) {
	base, err := newBaseAggregator(common.KeyHourlyToday, args)
	if err != nil {
		return nil, err
	}

	return &hourlyAggregator{
		baseAggregator: base,
	}, nil
}

// Aggregate fetches today's hourly visits of every site and sums them element-wise
func (aggr *hourlyAggregator) Aggregate(ctx context.Context, siteIDs []int) (interface{}, error) {
	err := aggr.checkPreconditions(siteIDs)
	if err != nil {
		return nil, err
	}

	bySite := make([]common.SiteHourly, len(siteIDs))
	err = aggr.fanOut(ctx, siteIDs, func(ctx context.Context, index int, idSite int) error {
		bySite[index] = common.SiteHourly{
			IDSite: idSite,
			Visits: common.NewZeroHours(),
		}

		body, errCall := aggr.client.Call(ctx, common.MethodVisitInfoPerLocalTime, siteParams(idSite, map[string]string{
			common.ParamPeriod: common.PeriodDay,
			common.ParamDate:   common.DateToday,
		}))
		if errCall != nil {
			return errCall
		}

		visits, errParse := parseHourlyVisits(body)
		if errParse != nil {
			return errParse
		}

		bySite[index].Visits = visits
		return nil
	})
	if err != nil {
		return nil, err
	}

	totals := common.NewZeroHours()
	for _, site := range bySite {
		for hour, visits := range site.Visits {
			totals[hour] += visits
		}
	}

	return &common.HourlyResponse{
		UpdatedAt: aggr.updatedAt(),
		TTL:       aggr.ttlSeconds(),
		Hours:     common.HourLabels(),
		Visits:    totals,
		BySite:    bySite,
	}, nil
}

// parseHourlyVisits expects an array of rows shaped as {"label": "13h", "nb_visits": 42}. Rows without a usable
// label or counter are skipped
func parseHourlyVisits(body []byte) ([]int, error) {
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of rows", common.ErrUnexpectedShape)
	}

	visits := common.NewZeroHours()
	for _, row := range rows.Array() {
		label := row.Get("label")
		counter := row.Get("nb_visits")
		if !label.Exists() || !counter.Exists() || counter.Type == gjson.Null {
			continue
		}

		hour, ok := parseHourLabel(label.String())
		if !ok {
			continue
		}

		visits[hour] = int(counter.Int())
	}

	return visits, nil
}

// parseHourLabel extracts the leading hour number of labels like "0h", "13h" or "7"
func parseHourLabel(label string) (int, bool) {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	hour, err := strconv.Atoi(label[:end])
	if err != nil || hour < 0 || hour >= common.HoursInDay {
		return 0, false
	}

	return hour, true
}

// IsInterfaceNil returns true if the value under the interface is nil
func (aggr *hourlyAggregator) IsInterfaceNil() bool {
	return aggr == nil
}
