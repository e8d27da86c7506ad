package project

import (
	"context"

	"go.uber.org/zap"
)

// StreamProtocol submits continuous payment streams to the external
// streaming protocol. flowRate is a per-second base-unit integer string.
type StreamProtocol interface {
	CreateFlow(ctx context.Context, receiver, flowRate string) error
}

// LogProtocol records stream submissions in the log without executing them.
// It stands in for the on-chain protocol in local runs.
type LogProtocol struct {
	Log *zap.SugaredLogger
}

func (p LogProtocol) CreateFlow(_ context.Context, receiver, flowRate string) error {
	p.Log.Infow("stream submitted", "receiver", receiver, "flow_rate", flowRate)
	return nil
}
