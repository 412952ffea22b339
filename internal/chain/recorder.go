package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMalformedAddress = errors.New("malformed address")
	ErrTxReverted       = errors.New("transaction reverted")
	// ErrConfirmTimeout means the transaction was broadcast but not mined
	// within the configured bound. The transaction may still land later.
	ErrConfirmTimeout = errors.New("confirmation wait timed out")
)

// Backend is the subset of an Ethereum node the recorder needs. ethclient
// satisfies it; tests substitute a fake.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Recorder is the typed capability over the marketplace contract: a fixed
// set of operations (Deploy, Purchase) against opaque ABI/bytecode
// artifacts. A submitted transaction moves
// Unsubmitted -> Pending -> Mined | Reverted; failures surface unchanged
// and are never retried here.
type Recorder struct {
	log            *slog.Logger
	backend        Backend
	auth           *bind.TransactOpts
	abi            abi.ABI
	bytecode       []byte
	confirmTimeout time.Duration
}

// NewRecorder binds the artifact and signer key to a backend. The
// confirmation wait is always bounded: confirmTimeout must be positive.
func NewRecorder(log *slog.Logger, backend Backend, artifact *Artifact, privateKeyHex string, chainID int64, confirmTimeout time.Duration) (*Recorder, error) {
	if confirmTimeout <= 0 {
		return nil, errors.New("confirm timeout must be positive")
	}

	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	return &Recorder{
		log:            log,
		backend:        backend,
		auth:           auth,
		abi:            parsed,
		bytecode:       common.FromHex(artifact.Bytecode),
		confirmTimeout: confirmTimeout,
	}, nil
}

// Deploy submits the contract bytecode and waits for the deployment to be
// mined, returning the contract address. Provider and revert errors surface
// unchanged; there is no retry.
func (r *Recorder) Deploy(ctx context.Context) (string, error) {
	const op = "chain.Recorder.Deploy"
	logger := r.log.With(slog.String("op", op))
	logger.Info("deploying contract")

	opts := r.transactOpts(ctx)
	addr, tx, _, err := bind.DeployContract(opts, r.abi, r.bytecode, r.backend)
	if err != nil {
		logger.Error("deploy broadcast failed", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.waitMined(ctx, tx); err != nil {
		logger.Error("deploy confirmation failed", slog.String("txHash", tx.Hash().Hex()), slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("contract deployed", slog.String("address", addr.Hex()))
	return addr.Hex(), nil
}

// Contract binds the ABI to an already-deployed address.
func (r *Recorder) Contract(address string) (*bind.BoundContract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, address)
	}
	return bind.NewBoundContract(common.HexToAddress(address), r.abi, r.backend, r.backend, r.backend), nil
}

// Purchase invokes the contract's purchase entry point for the buyer and
// blocks until the transaction is mined (one confirmation), returning the
// transaction hash. The wait is bounded by the configured confirm timeout
// and by ctx; a stalled provider yields ErrConfirmTimeout instead of
// hanging.
func (r *Recorder) Purchase(ctx context.Context, contractAddress string, productID int64, buyer string) (string, error) {
	const op = "chain.Recorder.Purchase"
	logger := r.log.With(slog.String("op", op), slog.Int64("productID", productID), slog.String("buyer", buyer))

	contract, err := r.Contract(contractAddress)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !common.IsHexAddress(buyer) {
		return "", fmt.Errorf("%s: %w: %q", op, ErrMalformedAddress, buyer)
	}

	opts := r.transactOpts(ctx)
	tx, err := contract.Transact(opts, "purchase", big.NewInt(productID), common.HexToAddress(buyer))
	if err != nil {
		logger.Error("purchase broadcast failed", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("purchase broadcast", slog.String("txHash", tx.Hash().Hex()))

	if _, err := r.waitMined(ctx, tx); err != nil {
		logger.Error("purchase confirmation failed", slog.String("txHash", tx.Hash().Hex()), slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("purchase mined", slog.String("txHash", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

func (r *Recorder) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *r.auth
	opts.Context = ctx
	return &opts
}

// waitMined blocks until one confirmation or the bounded deadline.
func (r *Recorder) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, r.backend, tx)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, fmt.Errorf("%w after %s: %v", ErrConfirmTimeout, r.confirmTimeout, err)
		}
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%w: tx %s", ErrTxReverted, tx.Hash().Hex())
	}
	return receipt, nil
}
