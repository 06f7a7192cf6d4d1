package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// DenomSuffixLen is the length of the "ufairy" suffix carried by amounts.
const DenomSuffixLen = 6

var (
	ErrMissingKey = errors.New("missing key")
	ErrMalformed  = errors.New("malformed result")
)

// AggregatedKey is a published threshold key.
type AggregatedKey struct {
	Height string
	Data   string
}

func (k AggregatedKey) Message() string {
	return "height: " + k.Height + "\ndata: " + k.Data
}

// Transfer is one transfer event of a transaction.
type Transfer struct {
	Height    string
	Hash      string
	Sender    string
	Recipient string
	Amount    string
	Value     *uint256.Int
}

func (t Transfer) Message() string {
	return "height: " + t.Height +
		"\nhash: " + t.Hash +
		"\nsender: " + t.Sender +
		"\nrecipient: " + t.Recipient +
		"\namount: " + t.Amount
}

// Submission identifies a scheduled encrypted transaction.
type Submission struct {
	TargetHeight string
	Creator      string
	Index        string
}

func decodeResult(raw json.RawMessage) (types.EventResult, error) {
	var res types.EventResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return res, nil
}

func first(res types.EventResult, key string) (string, error) {
	v, ok := res.First(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// ExtractAggregatedKey reads the first tx.height and keyshare-aggregated.data
// values of a result.
func ExtractAggregatedKey(raw json.RawMessage) (AggregatedKey, error) {
	res, err := decodeResult(raw)
	if err != nil {
		return AggregatedKey{}, err
	}
	height, err := first(res, types.KeyTxHeight)
	if err != nil {
		return AggregatedKey{}, err
	}
	data, err := first(res, types.EventTypeKeyshareAggregated+"."+types.AttrData)
	if err != nil {
		return AggregatedKey{}, err
	}
	return AggregatedKey{Height: height, Data: data}, nil
}

// ExtractTransfers returns every transfer event of a Tx result. Transfer
// events that cannot be read are reported in skipped; err is set only when
// the result itself is unusable.
func ExtractTransfers(raw json.RawMessage) (transfers []Transfer, skipped []error, err error) {
	res, err := decodeResult(raw)
	if err != nil {
		return nil, nil, err
	}
	height, err := first(res, types.KeyTxHeight)
	if err != nil {
		return nil, nil, err
	}
	hash, err := first(res, types.KeyTxHash)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Data.Value) == 0 {
		return nil, nil, fmt.Errorf("%w: no data.value", ErrMalformed)
	}

	var value types.TxValue
	if err := json.Unmarshal(res.Data.Value, &value); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	for i, ev := range value.TxResult.Result.Events {
		if ev.Type != types.EventTypeTransfer {
			continue
		}
		t, err := readTransfer(ev)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		t.Height = height
		t.Hash = hash
		transfers = append(transfers, t)
	}
	if len(transfers) == 0 && len(skipped) == 0 {
		return nil, nil, fmt.Errorf("%w: %s event", ErrMissingKey, types.EventTypeTransfer)
	}
	return transfers, skipped, nil
}

func readTransfer(ev types.Event) (Transfer, error) {
	var t Transfer
	var ok bool
	if t.Amount, ok = ev.Attribute(types.AttrAmount); !ok {
		return t, fmt.Errorf("%w: %s.%s", ErrMissingKey, ev.Type, types.AttrAmount)
	}
	if t.Sender, ok = ev.Attribute(types.AttrSender); !ok {
		return t, fmt.Errorf("%w: %s.%s", ErrMissingKey, ev.Type, types.AttrSender)
	}
	if t.Recipient, ok = ev.Attribute(types.AttrRecipient); !ok {
		return t, fmt.Errorf("%w: %s.%s", ErrMissingKey, ev.Type, types.AttrRecipient)
	}
	value, err := ParseAmount(t.Amount)
	if err != nil {
		return t, err
	}
	t.Value = value
	return t, nil
}

// ParseAmount strips the denomination suffix from an amount such as
// "2000000ufairy" and parses the remaining integer.
func ParseAmount(amount string) (*uint256.Int, error) {
	if len(amount) <= DenomSuffixLen {
		return nil, fmt.Errorf("%w: amount %q too short", ErrMalformed, amount)
	}
	value, err := uint256.FromDecimal(amount[:len(amount)-DenomSuffixLen])
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrMalformed, amount, err)
	}
	return value, nil
}

// ParseThreshold parses a non-negative integer amount in the smallest
// denomination.
func ParseThreshold(s string) (*uint256.Int, error) {
	value, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return value, nil
}

// ExtractSubmission finds the new-encrypted-tx-submitted event of a looked up
// transaction. ok is false when the transaction is not an encrypted one.
func ExtractSubmission(events []types.Event) (sub Submission, ok bool) {
	ev, found := types.FindEvent(events, types.EventTypeEncryptedTxSubmit)
	if !found {
		return sub, false
	}
	sub.TargetHeight, _ = ev.Attribute(types.AttrTargetHeight)
	sub.Creator, _ = ev.Attribute(types.AttrCreator)
	sub.Index, _ = ev.Attribute(types.AttrIndex)
	return sub, sub.TargetHeight != ""
}

// BlockHeight reads the header height of a NewBlock result.
func BlockHeight(raw json.RawMessage) (int64, error) {
	res, err := decodeResult(raw)
	if err != nil {
		return 0, err
	}
	if len(res.Data.Value) == 0 {
		return 0, fmt.Errorf("%w: no data.value", ErrMalformed)
	}
	var block types.NewBlockValue
	if err := json.Unmarshal(res.Data.Value, &block); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if block.Block.Header.Height == "" {
		return 0, fmt.Errorf("%w: block.header.height", ErrMissingKey)
	}
	height, err := strconv.ParseInt(block.Block.Header.Height, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: height %q", ErrMalformed, block.Block.Header.Height)
	}
	return height, nil
}
