package gametx

import "github.com/btcsuite/btcd/wire"

// EventRecord is one decoded game input, as handed to event sinks and query
// clients.
type EventRecord struct {
	Height int64  `json:"height"`
	TxID   string `json:"txid"`
	Input  int    `json:"input"`
	Text   string `json:"text"`
	Event  Event  `json:"event"`
}

// Records decodes every input of the game transactions of one block.
func Records(height int64, txs []*wire.MsgTx, opts DescribeOptions) []EventRecord {
	var out []EventRecord
	for _, tx := range txs {
		if !IsGameTx(tx) {
			continue
		}
		txid := tx.TxHash().String()
		for i, in := range tx.TxIn {
			out = append(out, EventRecord{
				Height: height,
				TxID:   txid,
				Input:  i,
				Text:   Describe(in.SignatureScript, opts),
				Event:  ToStructured(in.SignatureScript),
			})
		}
	}
	return out
}
