package ledger

import (
	"context"
	"crypto/ecdsa"
	stderrs "errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// EVMConfig configures the JSON-RPC backend
type EVMConfig struct {
	RPCURL         string
	ChainID        int64
	PrivateKey     string
	ProofRegistry  common.Address
	ScoreContract  common.Address
	BadgeContract  common.Address
	ConfirmTimeout time.Duration
	Retry          RetryPolicy
}

// chain is the slice of the node API used for broadcast and confirmation
type chain interface {
	bind.DeployBackend
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// EVM drives the contracts over JSON-RPC with a single signing key
type EVM struct {
	mu       sync.Mutex
	client   *ethclient.Client
	chain    chain
	auth     *bind.TransactOpts
	registry *bind.BoundContract
	score    *bind.BoundContract
	badge    *bind.BoundContract
	timeout  time.Duration
	retry    RetryPolicy
	sleep    sleeper
	log      logger.Logger
}

var _ Gateway = (*EVM)(nil)

// DialEVM connects to the node and binds the contracts
func DialEVM(ctx context.Context, cfg EVMConfig) (*EVM, error) {
	if cfg.RPCURL == "" {
		return nil, perr.InvalidArgf("ledger rpc url is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "ledger private key")
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "dial ledger rpc")
	}
	e, err := newEVM(client, client, key, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	e.client = client
	return e, nil
}

func newEVM(backend bind.ContractBackend, ch chain, key *ecdsa.PrivateKey, cfg EVMConfig) (*EVM, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "ledger transactor")
	}
	bound := func(addr common.Address, def string) (*bind.BoundContract, error) {
		parsed, err := abi.JSON(strings.NewReader(def))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "parse abi")
		}
		return bind.NewBoundContract(addr, parsed, backend, backend, backend), nil
	}
	e := &EVM{
		chain:   ch,
		auth:    auth,
		timeout: cfg.ConfirmTimeout,
		retry:   cfg.Retry.normalize(),
		sleep:   sleepCtx,
		log:     *logger.Named("ledger"),
	}
	if e.timeout <= 0 {
		e.timeout = 90 * time.Second
	}
	if e.registry, err = bound(cfg.ProofRegistry, proofRegistryABI); err != nil {
		return nil, err
	}
	if e.score, err = bound(cfg.ScoreContract, reputationScoreABI); err != nil {
		return nil, err
	}
	if e.badge, err = bound(cfg.BadgeContract, reputationBadgeABI); err != nil {
		return nil, err
	}
	return e, nil
}

// Sender is the address that signs every transaction
func (e *EVM) Sender() common.Address { return e.auth.From }

// Close releases the RPC connection
func (e *EVM) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// RegisterProof submits registerProof(address,bytes32,uint256)
func (e *EVM) RegisterProof(ctx context.Context, addr common.Address, proof common.Hash, delta uint64) (Pending, error) {
	return e.submit(ctx, OpRegister, e.registry, addr, [32]byte(proof), new(big.Int).SetUint64(delta))
}

// IncreaseScore submits increaseScore(address,uint256)
func (e *EVM) IncreaseScore(ctx context.Context, addr common.Address, delta uint64) (Pending, error) {
	return e.submit(ctx, OpIncrease, e.score, addr, new(big.Int).SetUint64(delta))
}

// MintBadge submits mintBadge(address,uint256,string,uint8)
func (e *EVM) MintBadge(ctx context.Context, addr common.Address, b Badge) (Pending, error) {
	if b.TokenID == nil {
		return Pending{}, perr.InvalidArgf("badge token id is required")
	}
	return e.submit(ctx, OpMint, e.badge, addr, b.TokenID, b.URI, b.Tier)
}

// submit signs without sending, then broadcasts the signed bytes with retries
// on an unconfirmed broadcast the returned Pending is still valid for Confirm
func (e *EVM) submit(ctx context.Context, op Op, c *bind.BoundContract, args ...any) (Pending, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := *e.auth
	opts.Context = ctx
	opts.NoSend = true
	tx, err := c.Transact(&opts, string(op), args...)
	if err != nil {
		return Pending{}, classify(err, op)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return Pending{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "encode %s tx", op)
	}
	p := Pending{Op: op, Tx: tx.Hash(), Raw: raw}

	_, err = retry(ctx, e.retry, e.sleep, op, func(ctx context.Context) (struct{}, error) {
		if err := e.chain.SendTransaction(ctx, tx); err != nil && !alreadyKnown(err) {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("op", string(op)).Str("tx", p.Tx.Hex()).Msg("ledger broadcast failed")
		return p, err
	}
	e.log.Debug().Str("op", string(op)).Str("tx", p.Tx.Hex()).Uint64("nonce", tx.Nonce()).Msg("ledger tx sent")
	return p, nil
}

// Confirm waits for p to be mined, rebroadcasting the signed bytes if the node lost it
func (e *EVM) Confirm(ctx context.Context, p Pending) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if len(p.Raw) == 0 {
		return Receipt{}, perr.LedgerUnconfirmedf(stderrs.New("no signed bytes"), "%s: cannot confirm", p.Op)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(p.Raw); err != nil {
		return Receipt{}, perr.Wrapf(err, perr.ErrorCodeLedgerUnconfirmed, "%s: decode signed tx", p.Op)
	}
	if tx.Hash() != p.Tx {
		return Receipt{}, perr.Newf(perr.ErrorCodeLedgerUnconfirmed, "%s: signed bytes do not match %s", p.Op, p.Tx.Hex())
	}

	if _, _, err := e.chain.TransactionByHash(ctx, p.Tx); stderrs.Is(err, ethereum.NotFound) {
		if serr := e.chain.SendTransaction(ctx, tx); serr != nil && !alreadyKnown(serr) {
			e.log.Warn().Err(serr).Str("tx", p.Tx.Hex()).Msg("ledger rebroadcast failed")
		} else {
			e.log.Info().Str("op", string(p.Op)).Str("tx", p.Tx.Hex()).Msg("ledger tx rebroadcast")
		}
	}

	rcpt, err := bind.WaitMined(ctx, e.chain, tx)
	if err != nil {
		return Receipt{}, classify(err, p.Op)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, perr.LedgerRejectedf(stderrs.New("execution reverted"), "%s reverted in block %d", p.Op, rcpt.BlockNumber.Uint64())
	}
	return Receipt{Tx: p.Tx, Block: rcpt.BlockNumber.Uint64()}, nil
}

// ScoreOf calls getScore(address)
func (e *EVM) ScoreOf(ctx context.Context, addr common.Address) (uint64, error) {
	return e.readUint(ctx, OpReadScore, e.score, "getScore", addr)
}

// BadgeBalance calls balanceOf(address)
func (e *EVM) BadgeBalance(ctx context.Context, addr common.Address) (uint64, error) {
	return e.readUint(ctx, "balanceOf", e.badge, "balanceOf", addr)
}

// IsProofUsed calls isProofUsed(bytes32)
func (e *EVM) IsProofUsed(ctx context.Context, proof common.Hash) (bool, error) {
	return retry(ctx, e.retry, e.sleep, "isProofUsed", func(ctx context.Context) (bool, error) {
		var out []any
		if err := e.registry.Call(&bind.CallOpts{Context: ctx}, &out, "isProofUsed", [32]byte(proof)); err != nil {
			return false, err
		}
		used, ok := out[0].(bool)
		if !ok {
			return false, perr.Newf(perr.ErrorCodeUnknown, "isProofUsed returned %T", out[0])
		}
		return used, nil
	})
}

func (e *EVM) readUint(ctx context.Context, op Op, c *bind.BoundContract, method string, args ...any) (uint64, error) {
	return retry(ctx, e.retry, e.sleep, op, func(ctx context.Context) (uint64, error) {
		var out []any
		if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
			return 0, err
		}
		v, ok := out[0].(*big.Int)
		if !ok || !v.IsUint64() {
			return 0, perr.Newf(perr.ErrorCodeUnknown, "%s returned %v", method, out[0])
		}
		return v.Uint64(), nil
	})
}
