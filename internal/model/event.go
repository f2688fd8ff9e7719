package model

import "strconv"

// Pool event names.
const (
	EventSwap    = "Swap"
	EventMint    = "Mint"
	EventBurn    = "Burn"
	EventCollect = "Collect"
)

// PoolEvent is a decoded pool log. Integer amounts are decimal strings in
// raw token units; fields that an event does not carry are left empty.
type PoolEvent struct {
	Pool         string `json:"pool"`
	Name         string `json:"name"`
	BlockNumber  uint64 `json:"blockNumber"`
	BlockHash    string `json:"blockHash"`
	TxHash       string `json:"txHash"`
	LogIndex     uint64 `json:"logIndex"`
	Timestamp    uint64 `json:"timestamp,omitempty"`
	Sender       string `json:"sender,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrtPriceX96,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	Tick         *int   `json:"tick,omitempty"`
	TickLower    *int   `json:"tickLower,omitempty"`
	TickUpper    *int   `json:"tickUpper,omitempty"`
}

// Key identifies the event within the chain.
func (e PoolEvent) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(e.LogIndex, 10)
}
