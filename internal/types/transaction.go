package types

// TxResponse is the body returned by the RPC /tx endpoint.
type TxResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  *ResultTx `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// ResultTx is a committed transaction looked up by hash.
type ResultTx struct {
	Hash     string       `json:"hash"`
	Height   string       `json:"height"`
	Index    uint32       `json:"index"`
	TxResult ExecTxResult `json:"tx_result"`
}
