package evmledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/tapfed/relayerd/internal/core/ports"
)

const (
	defaultReadTimeout    = 15 * time.Second
	defaultConfirmTimeout = 2 * time.Minute

	defaultRegisterGasLimit = 800_000
	defaultPostGasLimit     = 500_000
)

type Config struct {
	Endpoint     string
	RegistryAddr common.Address
	CipherAddr   common.Address
	RegistryABI  abi.ABI
	CipherABI    abi.ABI

	// Key enables the state-mutating calls. A nil key makes the client
	// read-only, which is what the source ledger gets.
	Key *ecdsa.PrivateKey

	ReadTimeout      time.Duration
	ConfirmTimeout   time.Duration
	RegisterGasLimit uint64
	PostGasLimit     uint64
}

// Client abstracts one RPC endpoint and one signer over the registry and
// cipher store contracts. It implements ports.DestinationLedger; a client
// built without a key still satisfies the interface but fails every write.
type Client struct {
	endpoint string
	ec       *ethclient.Client
	registry *bind.BoundContract
	cipher   *bind.BoundContract

	chainId *big.Int
	key     *ecdsa.PrivateKey
	sender  common.Address
	// dynamicFee selects the fee fields of every submission. Resolved once
	// at construction by inspecting the chain head, never re-probed per call.
	dynamicFee bool

	readTimeout      time.Duration
	confirmTimeout   time.Duration
	registerGasLimit uint64
	postGasLimit     uint64
}

// Dial connects to the endpoint and probes it with a chain id round trip, so
// an unreachable endpoint fails at construction time rather than on first use.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("missing ledger endpoint")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.RegisterGasLimit == 0 {
		cfg.RegisterGasLimit = defaultRegisterGasLimit
	}
	if cfg.PostGasLimit == 0 {
		cfg.PostGasLimit = defaultPostGasLimit
	}

	ec, err := ethclient.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrConnection, cfg.Endpoint, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout)
	defer cancel()

	chainId, err := ec.ChainID(probeCtx)
	if err != nil {
		ec.Close()
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrConnection, cfg.Endpoint, err)
	}

	client := &Client{
		endpoint:         cfg.Endpoint,
		ec:               ec,
		registry:         bind.NewBoundContract(cfg.RegistryAddr, cfg.RegistryABI, ec, ec, ec),
		cipher:           bind.NewBoundContract(cfg.CipherAddr, cfg.CipherABI, ec, ec, ec),
		chainId:          chainId,
		key:              cfg.Key,
		readTimeout:      cfg.ReadTimeout,
		confirmTimeout:   cfg.ConfirmTimeout,
		registerGasLimit: cfg.RegisterGasLimit,
		postGasLimit:     cfg.PostGasLimit,
	}

	if cfg.Key != nil {
		client.sender = crypto.PubkeyToAddress(cfg.Key.PublicKey)

		head, err := ec.HeaderByNumber(probeCtx, nil)
		if err != nil {
			ec.Close()
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrConnection, cfg.Endpoint, err)
		}
		client.dynamicFee = head.BaseFee != nil

		log.Debugf("ledger %s: chain id %s, sender %s, dynamic fees: %t",
			cfg.Endpoint, chainId, client.sender.Hex(), client.dynamicFee)
	}

	return client, nil
}

func (c *Client) Close() {
	c.ec.Close()
}

// Sender returns the address the client signs destination writes with.
func (c *Client) Sender() common.Address {
	return c.sender
}

func (c *Client) LastRound(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	var out []interface{}
	if err := c.registry.Call(&bind.CallOpts{Context: ctx}, &out, "lastRound"); err != nil {
		return 0, fmt.Errorf("lastRound call failed: %w", err)
	}

	last, err := bigAt(out, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: lastRound: %s", domain.ErrDecode, err)
	}
	return last.Uint64(), nil
}

func (c *Client) RoundInfo(ctx context.Context, roundId uint64) (domain.Round, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	var out []interface{}
	if err := c.registry.Call(
		&bind.CallOpts{Context: ctx}, &out, "getRoundInfo", new(big.Int).SetUint64(roundId),
	); err != nil {
		return domain.Round{}, fmt.Errorf("getRoundInfo call failed: %w", err)
	}

	round, err := decodeRound(out)
	if err != nil {
		return domain.Round{}, fmt.Errorf("%w: getRoundInfo: %s", domain.ErrDecode, err)
	}
	return round, nil
}

func (c *Client) Ciphers(ctx context.Context, roundId uint64) ([]domain.CipherRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	var out []interface{}
	if err := c.cipher.Call(
		&bind.CallOpts{Context: ctx}, &out, "getCiphers", new(big.Int).SetUint64(roundId),
	); err != nil {
		return nil, fmt.Errorf("getCiphers call failed: %w", err)
	}

	records, err := decodeCiphers(out)
	if err != nil {
		return nil, fmt.Errorf("%w: getCiphers: %s", domain.ErrDecode, err)
	}
	return records, nil
}

func (c *Client) RegisterRound(
	ctx context.Context, roundId uint64, merkleRoot common.Hash, metadataCid string,
) (ports.TxReceipt, error) {
	return c.submit(ctx, c.registry, "registerRound", c.registerGasLimit,
		new(big.Int).SetUint64(roundId), [32]byte(merkleRoot), metadataCid)
}

func (c *Client) PostCipher(
	ctx context.Context, roundId uint64, cid string, merkleRoot common.Hash,
) (ports.TxReceipt, error) {
	return c.submit(ctx, c.cipher, "postCipher", c.postGasLimit,
		new(big.Int).SetUint64(roundId), cid, [32]byte(merkleRoot))
}

// submit builds, signs, broadcasts and waits for exactly one confirmation.
// The nonce is fetched fresh per submission, which is safe because the
// relayer submits strictly sequentially.
func (c *Client) submit(
	ctx context.Context, contract *bind.BoundContract, method string, gasLimit uint64,
	args ...interface{},
) (ports.TxReceipt, error) {
	if c.key == nil {
		return ports.TxReceipt{}, fmt.Errorf(
			"%w: no signing key configured for %s", domain.ErrSubmission, c.endpoint,
		)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainId)
	if err != nil {
		return ports.TxReceipt{}, fmt.Errorf("%w: %s", domain.ErrSubmission, err)
	}

	// The build phase (fee, nonce, broadcast) is bounded by the read timeout;
	// only the confirmation wait gets the longer window.
	buildCtx, cancelBuild := context.WithTimeout(ctx, c.readTimeout)
	defer cancelBuild()

	opts.Context = buildCtx
	opts.GasLimit = gasLimit
	if !c.dynamicFee {
		gasPrice, err := c.ec.SuggestGasPrice(buildCtx)
		if err != nil {
			return ports.TxReceipt{}, fmt.Errorf(
				"%w: failed to fetch gas price: %s", domain.ErrSubmission, err,
			)
		}
		opts.GasPrice = gasPrice
	}

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return ports.TxReceipt{}, fmt.Errorf("%w: %s: %s", domain.ErrSubmission, method, err)
	}

	log.Debugf("ledger %s: submitted %s tx %s", c.endpoint, method, tx.Hash().Hex())

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.ec, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ports.TxReceipt{}, fmt.Errorf(
				"%w: %s tx %s", domain.ErrConfirmationTimeout, method, tx.Hash().Hex(),
			)
		}
		return ports.TxReceipt{}, fmt.Errorf("%w: %s: %s", domain.ErrSubmission, method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ports.TxReceipt{}, fmt.Errorf(
			"%w: %s tx %s reverted in block %d",
			domain.ErrSubmission, method, tx.Hash().Hex(), receipt.BlockNumber.Uint64(),
		)
	}

	return ports.TxReceipt{
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Status:      receipt.Status,
	}, nil
}
