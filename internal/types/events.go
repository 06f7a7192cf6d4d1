package types

import "encoding/json"

// Event types and attribute keys emitted by the chain.
const (
	EventTypeTransfer           = "transfer"
	EventTypeKeyshareAggregated = "keyshare-aggregated"
	EventTypeEncryptedTxSubmit  = "new-encrypted-tx-submitted"
	EventTypeEncryptedTxExec    = "executed-encrypted-tx"

	AttrAmount       = "amount"
	AttrSender       = "sender"
	AttrRecipient    = "recipient"
	AttrTargetHeight = "target-height"
	AttrCreator      = "creator"
	AttrIndex        = "index"
	AttrData         = "data"

	KeyTxHeight = "tx.height"
	KeyTxHash   = "tx.hash"
)

// EventResult is a populated subscription result.
type EventResult struct {
	Query  string              `json:"query"`
	Data   EventData           `json:"data"`
	Events map[string][]string `json:"events"`
}

// EventData wraps the typed payload of an event.
type EventData struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// First returns the first value recorded under a composite key such as
// "tx.height".
func (r EventResult) First(key string) (string, bool) {
	values, ok := r.Events[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// TxValue is the data.value payload of a Tx event.
type TxValue struct {
	TxResult struct {
		Height string       `json:"height"`
		Index  uint32       `json:"index"`
		Tx     string       `json:"tx"`
		Result ExecTxResult `json:"result"`
	} `json:"TxResult"`
}

// NewBlockValue is the data.value payload of a NewBlock event.
type NewBlockValue struct {
	Block struct {
		Header struct {
			ChainID string `json:"chain_id"`
			Height  string `json:"height"`
			Time    string `json:"time"`
		} `json:"header"`
	} `json:"block"`
}

// ExecTxResult is the execution result of a transaction.
type ExecTxResult struct {
	Code      uint32  `json:"code"`
	Codespace string  `json:"codespace,omitempty"`
	Log       string  `json:"log"`
	Events    []Event `json:"events"`
}

// Event is an ABCI event with its key/value attributes.
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

// EventAttribute is a single attribute of an ABCI event.
type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Index bool   `json:"index,omitempty"`
}

// Attribute returns the value of the first attribute named key.
func (e Event) Attribute(key string) (string, bool) {
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// FindEvent returns the first event of the given type.
func FindEvent(events []Event, eventType string) (Event, bool) {
	for _, ev := range events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return Event{}, false
}
