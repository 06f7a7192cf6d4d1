package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/Panorama-Block/fairyring-monitor/internal/types"
)

// ErrTxNotFound means the node did not return the transaction.
var ErrTxNotFound = errors.New("transaction not found")

// GetTx looks a committed transaction up by its hex hash (without 0x).
func (c *Client) GetTx(ctx context.Context, txHash string) (*types.ResultTx, error) {
	body, err := c.makeRequest(ctx, "/tx?hash="+url.QueryEscape("0x"+txHash))
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, statusErr)
		}
		return nil, err
	}

	var resp types.TxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, resp.Error)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("%w: empty result", ErrTxNotFound)
	}

	return resp.Result, nil
}
