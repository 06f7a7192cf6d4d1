package extractor

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/query"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// TransferMonitor alerts on transfers to or from an address above a threshold.
type TransferMonitor struct {
	dial      DialFunc
	alerts    Publisher
	address   string
	threshold *uint256.Int
	logger    *logrus.Entry
}

func NewTransferMonitor(dial DialFunc, alerts Publisher, address string, threshold *uint256.Int, logger *logrus.Entry) *TransferMonitor {
	return &TransferMonitor{
		dial:      dial,
		alerts:    alerts,
		address:   address,
		threshold: threshold,
		logger:    logger.WithFields(logrus.Fields{"address": address, "threshold": threshold.Dec()}),
	}
}

// Run subscribes to both directions on one stream and monitors until the
// stream ends or ctx is cancelled.
func (m *TransferMonitor) Run(ctx context.Context) error {
	sent, err := query.TransferFrom(m.address, m.threshold)
	if err != nil {
		return fmt.Errorf("query.TransferFrom: %w", err)
	}
	received, err := query.TransferTo(m.address, m.threshold)
	if err != nil {
		return fmt.Errorf("query.TransferTo: %w", err)
	}

	stream, err := openStream(ctx, m.dial, NameTransfer, sent, received)
	if err != nil {
		return err
	}
	defer stream.Close()

	return stream.Listen(ctx, m.handle)
}

func (m *TransferMonitor) handle(_ context.Context, resp types.RPCResponse) (bool, error) {
	transfers, skipped, err := ExtractTransfers(resp.Result)
	if err != nil {
		malformed(m.logger, NameTransfer, err)
		return false, nil
	}
	for _, e := range skipped {
		malformed(m.logger, NameTransfer, e)
	}

	for _, t := range transfers {
		// other legs of a multi-send share the tx
		if t.Sender != m.address && t.Recipient != m.address {
			m.logger.WithFields(logrus.Fields{"hash": t.Hash, "sender": t.Sender, "recipient": t.Recipient}).Debug("transfer of another address")
			continue
		}
		// the node already filtered on amount; the check is repeated on
		// the parsed value
		if !t.Value.Gt(m.threshold) {
			m.logger.WithFields(logrus.Fields{"hash": t.Hash, "amount": t.Amount}).Debug("transfer below threshold")
			continue
		}
		m.logger.WithFields(logrus.Fields{"hash": t.Hash, "amount": t.Amount}).Info("transfer above threshold")
		publish(m.alerts, m.logger, NameTransfer, t.Message())
	}
	return false, nil
}
