package extractor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/api"
	"github.com/Panorama-Block/fairyring-monitor/internal/config"
	"github.com/Panorama-Block/fairyring-monitor/internal/query"
	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// ExecutedMessage is the alert sent once an encrypted transaction executes.
const ExecutedMessage = "The encrypted transaction is executed now."

// Outcome is the terminal state of an encrypted transaction watch.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeExecuted
	OutcomeAlreadyExecuted
	OutcomeNotEncrypted
	OutcomeNotFound
	OutcomeTxFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeAlreadyExecuted:
		return "already executed"
	case OutcomeNotEncrypted:
		return "not an encrypted transaction"
	case OutcomeNotFound:
		return "not found"
	case OutcomeTxFailed:
		return "transaction failed"
	default:
		return "unknown"
	}
}

// TxLookup fetches a committed transaction by hash.
type TxLookup interface {
	GetTx(ctx context.Context, txHash string) (*types.ResultTx, error)
}

// EncryptedTxMonitor waits for a submitted encrypted transaction to execute.
type EncryptedTxMonitor struct {
	lookup   TxLookup
	dial     DialFunc
	alerts   Publisher
	strategy string
	logger   *logrus.Entry
}

func NewEncryptedTxMonitor(lookup TxLookup, dial DialFunc, alerts Publisher, strategy string, logger *logrus.Entry) *EncryptedTxMonitor {
	return &EncryptedTxMonitor{
		lookup:   lookup,
		dial:     dial,
		alerts:   alerts,
		strategy: strategy,
		logger:   logger,
	}
}

// Run looks the transaction up and, if it is a successful encrypted
// submission, watches the chain until its target height is decided.
func (m *EncryptedTxMonitor) Run(ctx context.Context, txHash string) (Outcome, error) {
	logger := m.logger.WithField("hash", txHash)

	tx, err := m.lookup.GetTx(ctx, txHash)
	if err != nil {
		if errors.Is(err, api.ErrTxNotFound) {
			logger.WithError(err).Warn("Transaction not found")
			return OutcomeNotFound, nil
		}
		return OutcomeUnknown, fmt.Errorf("lookup.GetTx: %w", err)
	}

	if tx.TxResult.Code != 0 {
		logger.WithFields(logrus.Fields{
			"code":      tx.TxResult.Code,
			"codespace": tx.TxResult.Codespace,
		}).Warnf("Transaction failed with code %d", tx.TxResult.Code)
		return OutcomeTxFailed, nil
	}

	sub, ok := ExtractSubmission(tx.TxResult.Events)
	if !ok {
		logger.Info("It is not an encrypted transaction")
		return OutcomeNotEncrypted, nil
	}
	logger = logger.WithFields(logrus.Fields{
		"target_height": sub.TargetHeight,
		"creator":       sub.Creator,
		"index":         sub.Index,
	})
	logger.Info("encrypted transaction submitted")

	switch m.strategy {
	case config.StrategyExecuted:
		return m.awaitExecutedEvent(ctx, sub, logger)
	case config.StrategyNewBlock, "":
		return m.awaitTargetBlock(ctx, sub, logger)
	default:
		return OutcomeUnknown, fmt.Errorf("unknown confirm strategy %q", m.strategy)
	}
}

// awaitTargetBlock follows new blocks and decides on the first block at or
// past the target height.
func (m *EncryptedTxMonitor) awaitTargetBlock(ctx context.Context, sub Submission, logger *logrus.Entry) (Outcome, error) {
	target, err := strconv.ParseInt(sub.TargetHeight, 10, 64)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("%w: target height %q", ErrMalformed, sub.TargetHeight)
	}
	q, err := query.NewBlocks()
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("query.NewBlocks: %w", err)
	}

	stream, err := openStream(ctx, m.dial, NameEncryptedTx, q)
	if err != nil {
		return OutcomeUnknown, err
	}
	defer stream.Close()

	outcome := OutcomeUnknown
	err = stream.Listen(ctx, func(_ context.Context, resp types.RPCResponse) (bool, error) {
		height, err := BlockHeight(resp.Result)
		if err != nil {
			malformed(logger, NameEncryptedTx, err)
			return false, nil
		}
		switch {
		case height > target:
			logger.WithField("height", height).Warn("encrypted transaction already executed")
			outcome = OutcomeAlreadyExecuted
			return true, nil
		case height == target:
			logger.WithField("height", height).Info(ExecutedMessage)
			publish(m.alerts, logger, NameEncryptedTx, ExecutedMessage)
			outcome = OutcomeExecuted
			return true, nil
		default:
			logger.WithField("height", height).Debug("waiting for target height")
			return false, nil
		}
	})
	if err != nil {
		return OutcomeUnknown, err
	}
	return outcome, nil
}

// awaitExecutedEvent subscribes to the execution event of this exact
// submission and decides on its first occurrence.
func (m *EncryptedTxMonitor) awaitExecutedEvent(ctx context.Context, sub Submission, logger *logrus.Entry) (Outcome, error) {
	if sub.Creator == "" || sub.Index == "" {
		return OutcomeUnknown, fmt.Errorf("%w: submission needs %s and %s", ErrMissingKey, types.AttrCreator, types.AttrIndex)
	}
	q, err := query.EncryptedTxExecuted(sub.TargetHeight, sub.Creator, sub.Index)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("query.EncryptedTxExecuted: %w", err)
	}

	stream, err := openStream(ctx, m.dial, NameEncryptedTx, q)
	if err != nil {
		return OutcomeUnknown, err
	}
	defer stream.Close()

	outcome := OutcomeUnknown
	err = stream.Listen(ctx, func(context.Context, types.RPCResponse) (bool, error) {
		logger.Info(ExecutedMessage)
		publish(m.alerts, logger, NameEncryptedTx, ExecutedMessage)
		outcome = OutcomeExecuted
		return true, nil
	})
	if err != nil {
		return OutcomeUnknown, err
	}
	return outcome, nil
}
