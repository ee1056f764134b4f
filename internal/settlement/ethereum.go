// Package settlement implements domain.SettlementLayer against the on-chain
// agent vault and bonding-curve router contracts.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// routerABIJSON is the subset of the router contract the fleet calls. Amounts
// are vault settlement units (1e6 per whole MON), not wei.
const routerABIJSON = `[
	{"name":"quote","type":"function","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"isBuy","type":"bool"}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]},
	{"name":"buy","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"vaultIndex","type":"uint256"},{"name":"token","type":"address"},
	           {"name":"amountIn","type":"uint256"},{"name":"minOut","type":"uint256"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]},
	{"name":"sell","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"vaultIndex","type":"uint256"},{"name":"token","type":"address"},
	           {"name":"amountIn","type":"uint256"},{"name":"minOut","type":"uint256"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]},
	{"name":"TradeExecuted","type":"event","anonymous":false,
	 "inputs":[{"name":"vaultIndex","type":"uint256","indexed":true},{"name":"token","type":"address","indexed":true},
	           {"name":"isBuy","type":"bool","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},
	           {"name":"amountOut","type":"uint256","indexed":false}]}
]`

// vaultABIJSON is the subset of the vault contract the fleet reads.
const vaultABIJSON = `[
	{"name":"agentBalance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"vaultIndex","type":"uint256"}],
	 "outputs":[{"name":"capital","type":"uint256"},{"name":"realizedPnl","type":"int256"},{"name":"rewards","type":"uint256"}]},
	{"name":"agentHolding","type":"function","stateMutability":"view",
	 "inputs":[{"name":"vaultIndex","type":"uint256"},{"name":"token","type":"address"}],
	 "outputs":[{"name":"amount","type":"uint256"},{"name":"cost","type":"uint256"}]}
]`

// Config carries connection and signing parameters for the layer.
type Config struct {
	RPCEndpoint    string
	ChainID        int64
	VaultAddress   string
	RouterAddress  string
	OperatorKeyHex string // hex private key, no 0x prefix
	CallTimeout    time.Duration
}

// Layer implements domain.SettlementLayer over JSON-RPC. Writes are
// serialized under a mutex so the operator account's nonces stay ordered.
type Layer struct {
	client     *ethclient.Client
	router     *bind.BoundContract
	vault      *bind.BoundContract
	routerABI  abi.ABI
	routerAddr common.Address
	opts       *bind.TransactOpts
	operator   common.Address

	callTimeout time.Duration
	logger      *slog.Logger

	txMu sync.Mutex
}

// New dials the RPC endpoint and prepares the keyed transactor.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Layer, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("settlement: dial %s: %w", cfg.RPCEndpoint, err)
	}

	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("settlement: parse router abi: %w", err)
	}
	vaultABI, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		return nil, fmt.Errorf("settlement: parse vault abi: %w", err)
	}

	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("settlement: parse operator key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("settlement: transactor: %w", err)
	}

	routerAddr := common.HexToAddress(cfg.RouterAddress)
	vaultAddr := common.HexToAddress(cfg.VaultAddress)

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	return &Layer{
		client:      client,
		router:      bind.NewBoundContract(routerAddr, routerABI, client, client, client),
		vault:       bind.NewBoundContract(vaultAddr, vaultABI, client, client, client),
		routerABI:   routerABI,
		routerAddr:  routerAddr,
		opts:        opts,
		operator:    ethcrypto.PubkeyToAddress(key.PublicKey),
		callTimeout: callTimeout,
		logger:      logger.With("component", "settlement"),
	}, nil
}

// Close releases the RPC connection.
func (l *Layer) Close() {
	l.client.Close()
}

// Quote asks the curve what amountInUnits converts to right now.
func (l *Layer) Quote(ctx context.Context, token string, amountInUnits int64, isBuy bool) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()

	var out []any
	err := l.router.Call(&bind.CallOpts{Context: ctx}, &out, "quote",
		common.HexToAddress(token), big.NewInt(amountInUnits), isBuy)
	if err != nil {
		return 0, fmt.Errorf("settlement: quote %s: %w", token, err)
	}
	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("settlement: quote %s: unexpected return type", token)
	}
	return amountOut.Int64(), nil
}

// Simulate dry-runs the trade via eth_call from the operator account so a
// revert surfaces before any state is committed.
func (l *Layer) Simulate(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, isBuy bool) error {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()

	method := "sell"
	if isBuy {
		method = "buy"
	}

	// Far-future deadline; the dry run only checks curve state and balances.
	deadline := big.NewInt(time.Now().Add(time.Hour).Unix())

	data, err := l.routerABI.Pack(method, big.NewInt(vaultIndex), common.HexToAddress(token),
		big.NewInt(amountInUnits), big.NewInt(minOutUnits), deadline)
	if err != nil {
		return fmt.Errorf("settlement: pack %s: %w", method, err)
	}

	to := l.routerAddr
	msg := ethereum.CallMsg{From: l.operator, To: &to, Data: data}
	if _, err := l.client.CallContract(ctx, msg, nil); err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrSimulationFail, method, token, err)
	}
	return nil
}

// ExecuteBuy spends amountInUnits of the agent's MON capital on the token.
func (l *Layer) ExecuteBuy(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, deadline time.Time) (domain.Fill, error) {
	return l.execute(ctx, "buy", vaultIndex, token, amountInUnits, minOutUnits, deadline)
}

// ExecuteSell sells amountInUnits of the token back into the curve.
func (l *Layer) ExecuteSell(ctx context.Context, vaultIndex int64, token string, amountInUnits, minOutUnits int64, deadline time.Time) (domain.Fill, error) {
	return l.execute(ctx, "sell", vaultIndex, token, amountInUnits, minOutUnits, deadline)
}

func (l *Layer) execute(ctx context.Context, method string, vaultIndex int64, token string, amountInUnits, minOutUnits int64, deadline time.Time) (domain.Fill, error) {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	opts := *l.opts
	opts.Context = ctx

	tx, err := l.router.Transact(&opts, method, big.NewInt(vaultIndex), common.HexToAddress(token),
		big.NewInt(amountInUnits), big.NewInt(minOutUnits), big.NewInt(deadline.Unix()))
	if err != nil {
		return domain.Fill{}, fmt.Errorf("settlement: %s %s: %w", method, token, err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, tx)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("settlement: %s %s: wait mined: %w", method, token, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Fill{}, fmt.Errorf("settlement: %s %s: tx %s reverted", method, token, tx.Hash())
	}

	fill := domain.Fill{
		AmountOutUnits: l.amountOutFromLogs(receipt),
		TxRef:          tx.Hash().Hex(),
	}
	l.logger.Info("trade settled",
		"method", method, "token", token, "vault", vaultIndex,
		"amount_in", amountInUnits, "amount_out", fill.AmountOutUnits, "tx", fill.TxRef)
	return fill, nil
}

// amountOutFromLogs extracts the executed amount from the TradeExecuted event.
// Returns 0 if the event is missing, which callers treat as a degraded fill.
func (l *Layer) amountOutFromLogs(receipt *types.Receipt) int64 {
	event := l.routerABI.Events["TradeExecuted"]
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		vals, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil || len(vals) < 3 {
			continue
		}
		if amountOut, ok := vals[2].(*big.Int); ok {
			return amountOut.Int64()
		}
	}
	l.logger.Warn("trade receipt missing TradeExecuted event")
	return 0
}

// AgentBalance reads the vault's view of an agent's funds.
func (l *Layer) AgentBalance(ctx context.Context, vaultIndex int64) (domain.AgentBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()

	var out []any
	err := l.vault.Call(&bind.CallOpts{Context: ctx}, &out, "agentBalance", big.NewInt(vaultIndex))
	if err != nil {
		return domain.AgentBalance{}, fmt.Errorf("settlement: agent balance %d: %w", vaultIndex, err)
	}
	if len(out) < 3 {
		return domain.AgentBalance{}, fmt.Errorf("settlement: agent balance %d: short return", vaultIndex)
	}

	capital, _ := out[0].(*big.Int)
	realized, _ := out[1].(*big.Int)
	rewards, _ := out[2].(*big.Int)
	if capital == nil || realized == nil || rewards == nil {
		return domain.AgentBalance{}, fmt.Errorf("settlement: agent balance %d: unexpected return types", vaultIndex)
	}

	return domain.AgentBalance{
		CapitalUnits:     capital.Int64(),
		RealizedPnLUnits: realized.Int64(),
		RewardTokenUnits: rewards.Int64(),
	}, nil
}

// AgentHolding reads the vault's view of one position. A zero amount means
// the vault does not hold the token for this agent.
func (l *Layer) AgentHolding(ctx context.Context, vaultIndex int64, token string) (domain.Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, l.callTimeout)
	defer cancel()

	var out []any
	err := l.vault.Call(&bind.CallOpts{Context: ctx}, &out, "agentHolding",
		big.NewInt(vaultIndex), common.HexToAddress(token))
	if err != nil {
		return domain.Holding{}, fmt.Errorf("settlement: agent holding %d %s: %w", vaultIndex, token, err)
	}
	if len(out) < 2 {
		return domain.Holding{}, fmt.Errorf("settlement: agent holding %d %s: short return", vaultIndex, token)
	}

	amount, _ := out[0].(*big.Int)
	cost, _ := out[1].(*big.Int)
	if amount == nil || cost == nil {
		return domain.Holding{}, fmt.Errorf("settlement: agent holding %d %s: unexpected return types", vaultIndex, token)
	}

	return domain.Holding{
		Token:       domain.NormalizeToken(token),
		AmountUnits: amount.Int64(),
		CostUnits:   cost.Int64(),
	}, nil
}

var _ domain.SettlementLayer = (*Layer)(nil)
