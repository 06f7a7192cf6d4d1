package extractor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/query"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// AggregatedKeyMonitor alerts on every keyshare-aggregated event.
type AggregatedKeyMonitor struct {
	dial   DialFunc
	alerts Publisher
	logger *logrus.Entry
}

func NewAggregatedKeyMonitor(dial DialFunc, alerts Publisher, logger *logrus.Entry) *AggregatedKeyMonitor {
	return &AggregatedKeyMonitor{dial: dial, alerts: alerts, logger: logger}
}

// Run monitors until the stream ends or ctx is cancelled.
func (m *AggregatedKeyMonitor) Run(ctx context.Context) error {
	q, err := query.AggregatedKey()
	if err != nil {
		return fmt.Errorf("query.AggregatedKey: %w", err)
	}

	stream, err := openStream(ctx, m.dial, NameAggregatedKey, q)
	if err != nil {
		return err
	}
	defer stream.Close()

	return stream.Listen(ctx, m.handle)
}

func (m *AggregatedKeyMonitor) handle(_ context.Context, resp types.RPCResponse) (bool, error) {
	key, err := ExtractAggregatedKey(resp.Result)
	if err != nil {
		malformed(m.logger, NameAggregatedKey, err)
		return false, nil
	}
	m.logger.WithField("height", key.Height).Info("aggregated key published")
	publish(m.alerts, m.logger, NameAggregatedKey, key.Message())
	return false, nil
}
