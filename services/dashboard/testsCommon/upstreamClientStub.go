package testsCommon

import "context"

// UpstreamClientStub -
type UpstreamClientStub struct {
	CallHandler        func(ctx context.Context, method string, params map[string]string) ([]byte, error)
	CheckConfigHandler func() error
}

// Call -
func (stub *UpstreamClientStub) Call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	if stub.CallHandler != nil {
		return stub.CallHandler(ctx, method, params)
	}

	return []byte("{}"), nil
}

// CheckConfig -
func (stub *UpstreamClientStub) CheckConfig() error {
	if stub.CheckConfigHandler != nil {
		return stub.CheckConfigHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *UpstreamClientStub) IsInterfaceNil() bool {
	return stub == nil
}
