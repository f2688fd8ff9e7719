package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vaultScope/internal/model"
)

func TestDecoderSwap(t *testing.T) {
	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-1000),
		big.NewInt(2000),
		big.NewInt(123456789),
		big.NewInt(987654321),
		big.NewInt(-15),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}

	log := buildLog(pool, parsed.Events["Swap"].ID, data, topicFromAddress(sender), topicFromAddress(recipient))
	if !decoder.CanDecode(log) {
		t.Fatalf("expected swap topic to be decodable")
	}

	event, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	if event.Name != model.EventSwap {
		t.Fatalf("name mismatch: %s", event.Name)
	}
	if event.Amount0 != "-1000" || event.Amount1 != "2000" {
		t.Fatalf("amounts mismatch: %+v", event)
	}
	if event.Liquidity != "987654321" || event.SqrtPriceX96 != "123456789" {
		t.Fatalf("price fields mismatch: %+v", event)
	}
	if event.Tick == nil || *event.Tick != -15 {
		t.Fatalf("tick mismatch: %v", event.Tick)
	}
	if event.Sender != sender.Hex() || event.Recipient != recipient.Hex() {
		t.Fatalf("address mismatch")
	}
	if event.Pool != pool.Hex() || event.BlockNumber != 12345 || event.LogIndex != 1 {
		t.Fatalf("log position mismatch: %+v", event)
	}
}

func TestDecoderMintBurnCollect(t *testing.T) {
	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	pool := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sender := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	mintData, err := parsed.Events["Mint"].Inputs.NonIndexed().Pack(
		sender,
		big.NewInt(5000),
		big.NewInt(100),
		big.NewInt(200),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}
	mint, err := decoder.Decode(buildLog(pool, parsed.Events["Mint"].ID, mintData,
		topicFromAddress(owner), topicFromInt24(-120), topicFromInt24(120)))
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	if *mint.TickLower != -120 || *mint.TickUpper != 120 {
		t.Fatalf("mint tick mismatch: %+v", mint)
	}
	if mint.Sender != sender.Hex() || mint.Owner != owner.Hex() || mint.Amount != "5000" {
		t.Fatalf("mint fields mismatch: %+v", mint)
	}

	burnData, err := parsed.Events["Burn"].Inputs.NonIndexed().Pack(
		big.NewInt(7000),
		big.NewInt(300),
		big.NewInt(400),
	)
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}
	burn, err := decoder.Decode(buildLog(pool, parsed.Events["Burn"].ID, burnData,
		topicFromAddress(owner), topicFromInt24(-60), topicFromInt24(60)))
	if err != nil {
		t.Fatalf("decode burn: %v", err)
	}
	if burn.Amount != "7000" || burn.Amount0 != "300" || burn.Amount1 != "400" {
		t.Fatalf("burn amount mismatch: %+v", burn)
	}

	collectData, err := parsed.Events["Collect"].Inputs.NonIndexed().Pack(
		recipient,
		big.NewInt(900),
		big.NewInt(1000),
	)
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}
	collect, err := decoder.Decode(buildLog(pool, parsed.Events["Collect"].ID, collectData,
		topicFromAddress(owner), topicFromInt24(-10), topicFromInt24(10)))
	if err != nil {
		t.Fatalf("decode collect: %v", err)
	}
	if collect.Amount0 != "900" || collect.Amount1 != "1000" {
		t.Fatalf("collect amount mismatch: %+v", collect)
	}
	if collect.Recipient != recipient.Hex() || collect.Amount != "" {
		t.Fatalf("collect fields mismatch: %+v", collect)
	}
}

func TestDecoderRejectsUnknownTopic(t *testing.T) {
	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	log := types.Log{Topics: []common.Hash{common.HexToHash("0x01")}}
	if decoder.CanDecode(log) {
		t.Fatalf("unexpected decodable topic")
	}
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
	if len(decoder.Topics()) != 4 {
		t.Fatalf("expected 4 topics, got %d", len(decoder.Topics()))
	}
}

func buildLog(pool common.Address, topic0 common.Hash, data []byte, indexed ...common.Hash) types.Log {
	return types.Log{
		Address:     pool,
		Topics:      append([]common.Hash{topic0}, indexed...),
		Data:        data,
		BlockNumber: 12345,
		BlockHash:   common.HexToHash("0xabc"),
		TxHash:      common.HexToHash("0xdef"),
		Index:       1,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}
