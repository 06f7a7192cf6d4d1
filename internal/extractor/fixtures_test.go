package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
	"github.com/Panorama-Block/fairyring-monitor/internal/websocket"
)

const (
	testAddress   = "fairy1qg5ega6dykkxc307y25pecuufrjkxkaggkkxh7"
	testRecipient = "fairy1m9l358xunhhwds0568za49mzhvuxx9uxl4sqxn"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func aggregatedFrame(height, data string) string {
	return fmt.Sprintf(`{"query":"tm.event='Tx' AND keyshare-aggregated EXISTS",
		"data":{"type":"tendermint/event/Tx","value":{"TxResult":{"height":%q,"result":{"events":[]}}}},
		"events":{"tm.event":["Tx"],"tx.height":[%q],"tx.hash":["ABCD"],"keyshare-aggregated.data":[%q,"second"]}}`,
		height, height, data)
}

type attr struct{ key, value string }

func transferEvent(attrs ...attr) types.Event {
	ev := types.Event{Type: types.EventTypeTransfer}
	for _, a := range attrs {
		ev.Attributes = append(ev.Attributes, types.EventAttribute{Key: a.key, Value: a.value, Index: true})
	}
	return ev
}

func transfer(sender, recipient, amount string) types.Event {
	return transferEvent(attr{"recipient", recipient}, attr{"sender", sender}, attr{"amount", amount})
}

func txFrame(height, hash string, events ...types.Event) string {
	var value types.TxValue
	value.TxResult.Height = height
	value.TxResult.Result.Events = events
	rawValue, _ := json.Marshal(value)
	res := map[string]any{
		"query": "tm.event='Tx'",
		"data":  map[string]any{"type": "tendermint/event/Tx", "value": json.RawMessage(rawValue)},
		"events": map[string][]string{
			"tm.event":  {"Tx"},
			"tx.height": {height},
			"tx.hash":   {hash},
		},
	}
	b, _ := json.Marshal(res)
	return string(b)
}

func blockFrame(height int64) string {
	return fmt.Sprintf(`{"query":"tm.event='NewBlock'",
		"data":{"type":"tendermint/event/NewBlock","value":{"block":{"header":{"chain_id":"fairyring-testnet-3","height":"%d"}}}},
		"events":{"tm.event":["NewBlock"]}}`, height)
}

// fakeStream replays results in order and then reports a closed stream.
type fakeStream struct {
	results    []string
	subscribed []string
	closed     bool
	delivered  int
	subErr     error
}

func (f *fakeStream) Subscribe(q string) (int, error) {
	if f.subErr != nil {
		return 0, f.subErr
	}
	f.subscribed = append(f.subscribed, q)
	return len(f.subscribed), nil
}

func (f *fakeStream) Listen(ctx context.Context, handle websocket.Handler) error {
	for _, r := range f.results {
		f.delivered++
		done, err := handle(ctx, types.RPCResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(r)})
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", websocket.ErrClosed, io.EOF)
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func dialer(stream *fakeStream, dialed *int) DialFunc {
	return func(context.Context, string) (Stream, error) {
		if dialed != nil {
			*dialed++
		}
		return stream, nil
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (p *recordingPublisher) Publish(a types.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return nil
}

func (p *recordingPublisher) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, a := range p.alerts {
		out = append(out, a.Text)
	}
	return out
}

type fakeLookup struct {
	tx  *types.ResultTx
	err error
}

func (f fakeLookup) GetTx(context.Context, string) (*types.ResultTx, error) {
	return f.tx, f.err
}

func submittedTx(code uint32, attrs ...attr) *types.ResultTx {
	tx := &types.ResultTx{Hash: "ABCD", Height: "1180"}
	tx.TxResult.Code = code
	ev := types.Event{Type: types.EventTypeEncryptedTxSubmit}
	for _, a := range attrs {
		ev.Attributes = append(ev.Attributes, types.EventAttribute{Key: a.key, Value: a.value})
	}
	tx.TxResult.Events = []types.Event{
		{Type: "message", Attributes: []types.EventAttribute{{Key: "action", Value: "/fairyring.pep.MsgSubmitEncryptedTx"}}},
		ev,
	}
	return tx
}

var errDialRefused = errors.New("connection refused")

func contains(qs []string, sub string) bool {
	for _, q := range qs {
		if strings.Contains(q, sub) {
			return true
		}
	}
	return false
}
