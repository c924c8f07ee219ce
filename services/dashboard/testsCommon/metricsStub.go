package testsCommon

import "time"

// MetricsStub -
type MetricsStub struct {
	RecordUpstreamCallHandler func(method string, err error, duration time.Duration)
	RecordCacheReadHandler    func(key string, result string)
	RecordCacheWriteHandler   func(key string, success bool)
	RecordSiteFailureHandler  func(metric string)
	RecordOutcomeHandler      func(metric string, outcome string)
}

// RecordUpstreamCall -
func (stub *MetricsStub) RecordUpstreamCall(method string, err error, duration time.Duration) {
	if stub.RecordUpstreamCallHandler != nil {
		stub.RecordUpstreamCallHandler(method, err, duration)
	}
}

// RecordCacheRead -
func (stub *MetricsStub) RecordCacheRead(key string, result string) {
	if stub.RecordCacheReadHandler != nil {
		stub.RecordCacheReadHandler(key, result)
	}
}

// RecordCacheWrite -
func (stub *MetricsStub) RecordCacheWrite(key string, success bool) {
	if stub.RecordCacheWriteHandler != nil {
		stub.RecordCacheWriteHandler(key, success)
	}
}

// RecordSiteFailure -
func (stub *MetricsStub) RecordSiteFailure(metric string) {
	if stub.RecordSiteFailureHandler != nil {
		stub.RecordSiteFailureHandler(metric)
	}
}

// RecordOutcome -
func (stub *MetricsStub) RecordOutcome(metric string, outcome string) {
	if stub.RecordOutcomeHandler != nil {
		stub.RecordOutcomeHandler(metric, outcome)
	}
}

// IsInterfaceNil -
func (stub *MetricsStub) IsInterfaceNil() bool {
	return stub == nil
}
