package extractor

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/metrics"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
	"github.com/Panorama-Block/fairyring-monitor/internal/websocket"
)

// Monitor names, used for logs, metrics and alert sources.
const (
	NameAggregatedKey = "aggregated_key"
	NameTransfer      = "transfer"
	NameEncryptedTx   = "encrypted_tx"
)

// Stream is an open event stream subscription session.
type Stream interface {
	Subscribe(query string) (int, error)
	Listen(ctx context.Context, handle websocket.Handler) error
	Close() error
}

// DialFunc opens a new event stream for the named monitor.
type DialFunc func(ctx context.Context, name string) (Stream, error)

// Publisher accepts alerts for delivery.
type Publisher interface {
	Publish(alert types.Alert) error
}

func publish(alerts Publisher, logger *logrus.Entry, source, text string) {
	if err := alerts.Publish(types.Alert{Text: text, Source: source}); err != nil {
		logger.WithError(err).Error("alert not queued")
	}
}

func malformed(logger *logrus.Entry, name string, err error) {
	metrics.MessagesMalformed.WithLabelValues(name).Inc()
	logger.WithError(err).Error("skipping malformed message")
}

func openStream(ctx context.Context, dial DialFunc, name string, queries ...string) (Stream, error) {
	stream, err := dial(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, q := range queries {
		if _, err := stream.Subscribe(q); err != nil {
			stream.Close()
			return nil, err
		}
	}
	return stream, nil
}
