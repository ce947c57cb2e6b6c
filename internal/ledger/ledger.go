// Package ledger wraps the transaction and script primitives of the underlying
// UTXO ledger (btcd wire/txscript) with the few conventions the game chain adds
// on top: its address version bytes, the game transaction version and the null
// outpoint used by informational inputs.
package ledger

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// GameTxVersion is the version field of every transaction produced by the
	// game step encoder. Regular transactions never use it.
	GameTxVersion int32 = 0x7200

	// NameTxVersion is the version field of name registration transactions.
	NameTxVersion int32 = 0x7100
)

var mainNetParams = func() chaincfg.Params {
	p := chaincfg.MainNetParams
	p.Name = "gamechain"
	p.Net = 0xfeb4bef9
	p.PubKeyHashAddrID = 0x28 // H
	p.ScriptHashAddrID = 0x0d
	p.PrivateKeyID = 0xa8
	p.Bech32HRPSegwit = "hc"
	return p
}()

// MainNetParams returns the address parameters of the game chain.
func MainNetParams() *chaincfg.Params {
	return &mainNetParams
}

// NullOutPoint returns the outpoint carried by inputs that do not spend
// anything (zero hash, max index).
func NullOutPoint() *wire.OutPoint {
	return wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex)
}

// IsNullOutPoint reports whether op is the null outpoint.
func IsNullOutPoint(op wire.OutPoint) bool {
	return op.Index == wire.MaxPrevOutIndex && op.Hash == (chainhash.Hash{})
}

// PayToAddress decodes a base58 address for params and returns its payment
// script.
func PayToAddress(addr string, params *chaincfg.Params) ([]byte, error) {
	a, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if !a.IsForNet(params) {
		return nil, fmt.Errorf("address %q is not for network %s", addr, params.Name)
	}
	script, err := txscript.PayToAddrScript(a)
	if err != nil {
		return nil, fmt.Errorf("pay to address %q: %w", addr, err)
	}
	return script, nil
}

// AddressFromScript extracts the single address paid by pkScript.
func AddressFromScript(pkScript []byte, params *chaincfg.Params) (btcutil.Address, error) {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, params)
	if err != nil {
		return nil, fmt.Errorf("extract script addresses: %w", err)
	}
	if class == txscript.NonStandardTy || len(addrs) != 1 {
		return nil, fmt.Errorf("script does not pay a single address (class=%s, addrs=%d)", class, len(addrs))
	}
	return addrs[0], nil
}

// SerializeTx returns the wire encoding of tx.
func SerializeTx(tx *wire.MsgTx) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx is nil")
	}
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize tx: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeTx is the inverse of SerializeTx.
func DeserializeTx(b []byte) (*wire.MsgTx, error) {
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("deserialize tx: %w", err)
	}
	return tx, nil
}

// TxsEqual reports whether a and b serialize to identical bytes, in order.
func TxsEqual(a, b []*wire.MsgTx) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		ab, err := SerializeTx(a[i])
		if err != nil {
			return false, err
		}
		bb, err := SerializeTx(b[i])
		if err != nil {
			return false, err
		}
		if !bytes.Equal(ab, bb) {
			return false, nil
		}
	}
	return true, nil
}
