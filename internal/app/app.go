package app

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	abci "github.com/cometbft/cometbft/abci/types"
	dbm "github.com/cosmos/cosmos-db"

	"gamechain/internal/codec"
	"gamechain/internal/gametx"
	"gamechain/internal/ledger"
	"gamechain/internal/names"
	"gamechain/internal/state"
)

const (
	AppVersion uint64 = 1
)

// EventSink receives the decoded game events of every committed block.
type EventSink interface {
	WriteEvents(recs []gametx.EventRecord) error
	Close() error
}

// PlayerEvents answers per-player history queries.
type PlayerEvents interface {
	ByPlayer(ctx context.Context, player string, limit int) ([]gametx.EventRecord, error)
}

type Options struct {
	Home     string
	// DB holds the name index and the game txs. Defaults to an in-memory
	// database.
	DB       dbm.DB
	Params   *chaincfg.Params
	Logger   log.Logger
	Sinks    []EventSink
	History  PlayerEvents
	Describe gametx.DescribeOptions
}

type GameApp struct {
	*abci.BaseApplication

	home     string
	db       dbm.DB
	params   *chaincfg.Params
	logger   log.Logger
	names    *names.DBIndex
	encoder  *gametx.Encoder
	sinks    []EventSink
	history  PlayerEvents
	describe gametx.DescribeOptions

	mu      sync.Mutex
	st      *state.State
	pending []gametx.EventRecord
}

func New(opts Options) (*GameApp, error) {
	appHome := filepath.Join(opts.Home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	db := opts.DB
	if db == nil {
		db = dbm.NewMemDB()
	}
	params := opts.Params
	if params == nil {
		params = ledger.MainNetParams()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	idx := names.NewDBIndex(db)
	a := &GameApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            opts.Home,
		db:              db,
		params:          params,
		logger:          logger.With("module", "app"),
		names:           idx,
		encoder:         gametx.NewEncoder(idx, params, logger),
		sinks:           opts.Sinks,
		history:         opts.History,
		describe:        opts.Describe,
		st:              st,
	}
	return a, nil
}

// Close releases the sinks and the database.
func (a *GameApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for _, s := range a.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *GameApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "gamechain",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.st.AppHash,
	}, nil
}

func (a *GameApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	switch env.Type {
	case codec.TypeNameRegister:
		if _, err := a.parseRegister(env); err != nil {
			return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
		}
	case codec.TypeGameStep:
		step, err := parseStep(env)
		if err != nil {
			return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
		}
		// Dead names are tombstoned at the next height, which is also the
		// earliest height this step can be encoded at.
		a.mu.Lock()
		err = a.encoder.Validate(gametx.GameState{Height: a.st.Height + 1}, step)
		a.mu.Unlock()
		if err != nil {
			return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
		}
	default:
		return &abci.CheckTxResponse{Code: 1, Log: "unknown tx type: " + env.Type}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *GameApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &abci.InitChainResponse{AppHash: a.st.AppHash}, nil
}

func (a *GameApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	blk := &blockCtx{height: req.Height}

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	accepted := make([][]byte, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(blk, txBytes)
		if res.Code == 0 {
			accepted = append(accepted, txBytes)
		}
		txResults = append(txResults, res)
	}

	if blk.err != nil {
		a.logger.Error("cannot validate game step", "height", req.Height, "err", blk.err)
		return nil, blk.err
	}

	var (
		gameTxs []*wire.MsgTx
		events  []abci.Event
	)
	if blk.step != nil {
		var err error
		gameTxs, events, err = a.applyStep(req.Height, blk.step)
		if err != nil {
			return nil, err
		}
	}

	hash, err := state.NextAppHash(a.st.AppHash, req.Height, accepted, gameTxs)
	if err != nil {
		return nil, err
	}
	a.st.AppHash = hash

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		Events:    events,
		AppHash:   a.st.AppHash,
	}, nil
}

// applyStep derives the block's game txs from a step that already passed
// Validate. Any error left here is node-local and must halt.
func (a *GameApp) applyStep(height int64, step *gametx.StepResult) ([]*wire.MsgTx, []abci.Event, error) {
	gs := gametx.GameState{Height: height}
	txs, err := a.encoder.Encode(gs, *step)
	if err != nil {
		a.logger.Error("cannot encode game step", "height", height, "err", err)
		return nil, nil, err
	}
	if err := saveGameTxs(a.db, height, txs); err != nil {
		return nil, nil, fmt.Errorf("store game txs: %w", err)
	}
	// Queries and audits read the stored copy; it must be the encoded one.
	stored, err := loadGameTxs(a.db, height)
	if err != nil {
		return nil, nil, fmt.Errorf("reload game txs: %w", err)
	}
	if err := gametx.VerifyGameTxs(txs, stored); err != nil {
		a.logger.Error("stored game txs differ from the encoding", "height", height, "err", err)
		return nil, nil, err
	}
	// Dead names stop resolving from the next step on.
	for victim := range step.KilledPlayers {
		if err := a.names.Kill(string(victim), height+1); err != nil {
			return nil, nil, fmt.Errorf("tombstone %q: %w", victim, err)
		}
	}

	sum := gametx.Summarize(txs)
	a.st.DeathTxs += uint64(boolToInt(sum.Deaths > 0))
	a.st.BountyTxs += uint64(boolToInt(sum.Bounties > 0))

	var events []abci.Event
	for _, tx := range txs {
		txid := tx.TxHash().String()
		lines := gametx.DescribeTx(tx, a.describe)
		typ := "GameTxBounty"
		if len(tx.TxOut) == 0 {
			typ = "GameTxDeath"
		}
		events = append(events, abci.Event{
			Type: typ,
			Attributes: []abci.EventAttribute{
				{Key: "txid", Value: txid, Index: true},
				{Key: "inputs", Value: strconv.Itoa(len(tx.TxIn)), Index: false},
				{Key: "description", Value: strings.Join(lines, "\n"), Index: false},
			},
		})
	}
	events = append(events, okEvent("GameStepApplied", map[string]string{
		"height":   strconv.FormatInt(height, 10),
		"deaths":   strconv.Itoa(sum.Deaths),
		"bounties": strconv.Itoa(sum.Bounties),
		"payout":   sum.Payout.String(),
	}).Events...)

	a.pending = append(a.pending, gametx.Records(height, txs, a.describe)...)
	a.logger.Info("applied game step",
		"height", height,
		"txs", len(txs),
		"deaths", sum.Deaths,
		"bounties", sum.Bounties,
		"payout", sum.Payout.String(),
	)
	return txs, events, nil
}

func (a *GameApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block for durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}

	// Sinks are secondary copies; a failing sink must not halt consensus.
	for _, s := range a.sinks {
		if err := s.WriteEvents(a.pending); err != nil {
			a.logger.Error("event sink write failed", "height", a.st.Height, "err", err)
		}
	}
	a.pending = nil
	return &abci.CommitResponse{}, nil
}

func (a *GameApp) Query(ctx context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /name/<name>
	// - /gametxs/<height>
	// - /events/<player>
	path := strings.TrimSpace(req.Path)
	switch {
	case strings.HasPrefix(path, "/name/"):
		name := strings.TrimPrefix(path, "/name/")
		height := a.st.Height
		if req.Height > 0 {
			height = req.Height
		}
		view, err := a.nameView(name, height)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: err.Error(), Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(view)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/gametxs/"):
		raw := strings.TrimPrefix(path, "/gametxs/")
		height, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || height <= 0 {
			return &abci.QueryResponse{Code: 1, Log: "invalid height", Height: a.st.Height}, nil
		}
		txs, err := loadGameTxs(a.db, height)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: err.Error(), Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(a.gameTxViews(txs))
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/events/"):
		if a.history == nil {
			return &abci.QueryResponse{Code: 1, Log: "event index disabled", Height: a.st.Height}, nil
		}
		player := strings.TrimPrefix(path, "/events/")
		recs, err := a.history.ByPlayer(ctx, player, 0)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: err.Error(), Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(recs)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// blockCtx tracks per-block limits while txs are delivered. err is a
// node-local failure that must halt the block rather than reject a tx.
type blockCtx struct {
	height int64
	step   *gametx.StepResult
	err    error
}

func (a *GameApp) deliverTx(blk *blockCtx, txBytes []byte) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}

	switch env.Type {
	case codec.TypeNameRegister:
		msg, err := a.parseRegister(env)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		script, err := ledger.PayToAddress(msg.Address, a.params)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		tx, err := names.NewRegistrationTx(msg.Name, []byte(msg.Value), script, blk.height)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := a.names.Register(msg.Name, blk.height, tx); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.Registrations++
		return okEvent("NameRegistered", map[string]string{
			"name":    msg.Name,
			"address": msg.Address,
			"txid":    tx.TxHash().String(),
		})

	case codec.TypeGameStep:
		if blk.step != nil {
			return &abci.ExecTxResult{Code: 1, Log: "game step already applied in this block"}
		}
		step, err := parseStep(env)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		// A step the encoder cannot turn into txs is refused here, so that
		// only index failures can stop the block.
		if err := a.encoder.Validate(gametx.GameState{Height: blk.height}, step); err != nil {
			if errors.Is(err, gametx.ErrNameIndex) && blk.err == nil {
				blk.err = err
			}
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		blk.step = &step
		return okEvent("GameStepAccepted", map[string]string{
			"killed":   strconv.Itoa(len(step.KilledPlayers)),
			"bounties": strconv.Itoa(len(step.Bounties)),
		})

	default:
		return &abci.ExecTxResult{Code: 1, Log: "unknown tx type: " + env.Type}
	}
}

func (a *GameApp) parseRegister(env codec.TxEnvelope) (codec.NameRegisterTx, error) {
	var msg codec.NameRegisterTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return msg, fmt.Errorf("bad name/register value")
	}
	if err := names.ValidateName(msg.Name); err != nil {
		return msg, err
	}
	if msg.Address == "" {
		return msg, fmt.Errorf("missing address")
	}
	if _, err := ledger.PayToAddress(msg.Address, a.params); err != nil {
		return msg, err
	}
	return msg, nil
}

func parseStep(env codec.TxEnvelope) (gametx.StepResult, error) {
	var msg codec.GameStepTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return gametx.StepResult{}, fmt.Errorf("bad game/step value")
	}
	return msg.StepResult()
}

type nameView struct {
	Name    string `json:"name"`
	Height  int64  `json:"height"`
	Alive   bool   `json:"alive"`
	TxID    string `json:"txid,omitempty"`
	Address string `json:"address,omitempty"`
	Value   string `json:"value,omitempty"`
}

func (a *GameApp) nameView(name string, height int64) (nameView, error) {
	view := nameView{Name: name, Height: height}
	tx, ok, err := a.names.Lookup(name, height)
	if err != nil || !ok {
		return view, err
	}
	view.Alive = true
	view.TxID = tx.TxHash().String()
	if i, ok := names.NameOutputIndex(tx); ok {
		ns, _ := names.ParseNameScript(tx.TxOut[i].PkScript)
		view.Value = string(ns.Value)
		if addr, err := ledger.AddressFromScript(ns.AddressScript, a.params); err == nil {
			view.Address = addr.EncodeAddress()
		}
	}
	return view, nil
}

type gameTxView struct {
	TxID   string         `json:"txid"`
	Hex    string         `json:"hex"`
	Lines  []string       `json:"lines"`
	Events []gametx.Event `json:"events"`
}

func (a *GameApp) gameTxViews(txs []*wire.MsgTx) []gameTxView {
	out := make([]gameTxView, 0, len(txs))
	for _, tx := range txs {
		b, _ := ledger.SerializeTx(tx)
		out = append(out, gameTxView{
			TxID:   tx.TxHash().String(),
			Hex:    hex.EncodeToString(b),
			Lines:  gametx.DescribeTx(tx, a.describe),
			Events: gametx.StructuredTx(tx),
		})
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}
