package testsCommon

import "context"

// AggregatorStub -
type AggregatorStub struct {
	AggregateHandler func(ctx context.Context, siteIDs []int) (interface{}, error)
}

// Aggregate -
func (stub *AggregatorStub) Aggregate(ctx context.Context, siteIDs []int) (interface{}, error) {
	if stub.AggregateHandler != nil {
		return stub.AggregateHandler(ctx, siteIDs)
	}

	return map[string]interface{}{}, nil
}

// IsInterfaceNil -
func (stub *AggregatorStub) IsInterfaceNil() bool {
	return stub == nil
}
