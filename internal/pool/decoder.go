package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultScope/internal/model"
)

// Decoder turns pool logs into model.PoolEvent values.
type Decoder struct {
	poolABI     abi.ABI
	topicToName map[common.Hash]string
}

// NewDecoder builds a decoder for Swap, Mint, Burn and Collect.
func NewDecoder() (*Decoder, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	topicToName := make(map[common.Hash]string, 4)
	for _, name := range []string{model.EventSwap, model.EventMint, model.EventBurn, model.EventCollect} {
		topicToName[parsed.Events[name].ID] = name
	}
	return &Decoder{poolABI: parsed, topicToName: topicToName}, nil
}

// Topics returns the topic0 values the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for _, name := range []string{model.EventSwap, model.EventMint, model.EventBurn, model.EventCollect} {
		out = append(out, d.poolABI.Events[name].ID)
	}
	return out
}

// CanDecode reports whether the log carries a supported topic0.
func (d *Decoder) CanDecode(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := d.topicToName[log.Topics[0]]
	return ok
}

// Decode converts a raw log into a PoolEvent.
func (d *Decoder) Decode(log types.Log) (model.PoolEvent, error) {
	if len(log.Topics) == 0 {
		return model.PoolEvent{}, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return model.PoolEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	event := d.poolABI.Events[name]
	out := model.PoolEvent{
		Pool:        log.Address.Hex(),
		Name:        name,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
	}

	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return model.PoolEvent{}, fmt.Errorf("%s: expected %d topics, got %d", name, len(indexed)+1, len(log.Topics))
	}
	topics := make(map[string]interface{}, len(indexed))
	if err := abi.ParseTopicsIntoMap(topics, indexed, log.Topics[1:]); err != nil {
		return model.PoolEvent{}, fmt.Errorf("%s: parse topics: %w", name, err)
	}
	fields := make(map[string]interface{}, len(event.Inputs))
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, log.Data); err != nil {
		return model.PoolEvent{}, fmt.Errorf("%s: unpack: %w", name, err)
	}
	for k, v := range topics {
		fields[k] = v
	}

	var err error
	switch name {
	case model.EventSwap:
		err = decodeSwap(fields, &out)
	default:
		err = decodePosition(fields, &out)
	}
	if err != nil {
		return model.PoolEvent{}, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func decodeSwap(fields map[string]interface{}, out *model.PoolEvent) error {
	out.Sender = addressField(fields, "sender")
	out.Recipient = addressField(fields, "recipient")
	for key, dst := range map[string]*string{
		"amount0":      &out.Amount0,
		"amount1":      &out.Amount1,
		"sqrtPriceX96": &out.SqrtPriceX96,
		"liquidity":    &out.Liquidity,
	} {
		v, err := AsBigInt(fields[key])
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = v.String()
	}
	tick, err := intField(fields, "tick")
	if err != nil {
		return err
	}
	out.Tick = &tick
	return nil
}

// decodePosition handles Mint, Burn and Collect, which share the
// owner/tickLower/tickUpper shape.
func decodePosition(fields map[string]interface{}, out *model.PoolEvent) error {
	out.Owner = addressField(fields, "owner")
	out.Sender = addressField(fields, "sender")
	out.Recipient = addressField(fields, "recipient")

	if raw, ok := fields["amount"]; ok {
		amount, err := AsBigInt(raw)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		out.Amount = amount.String()
	}
	amount0, err := AsBigInt(fields["amount0"])
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := AsBigInt(fields["amount1"])
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}
	out.Amount0 = amount0.String()
	out.Amount1 = amount1.String()

	lower, err := intField(fields, "tickLower")
	if err != nil {
		return err
	}
	upper, err := intField(fields, "tickUpper")
	if err != nil {
		return err
	}
	out.TickLower = &lower
	out.TickUpper = &upper
	return nil
}

func addressField(fields map[string]interface{}, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	addr, err := AsAddress(raw)
	if err != nil {
		return ""
	}
	return addr.Hex()
}

func intField(fields map[string]interface{}, key string) (int, error) {
	v, err := AsBigInt(fields[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	out, err := Int24(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
