// Package bridge implements C10 from spec.md: a small set of
// operator-facing helpers (genesis ceremony and staking plumbing) that
// exercise the same L1 settlement contract surface as settlement.Manager
// (spec.md §6: acceptGenesisCeremony, stake, approve, mint). These are
// documented example clients of the settlement contract, not part of the
// node's core pipeline (spec.md §2, C10, "peripheral").
//
// Grounded in original_source's
// protocol-units/settlement/mcr/client/src/tests/e2e/genesis_ceremony.rs:
// this package is a plain Go restatement of that flow over go-ethereum, in
// the same style settlement.EthClient uses for postBlockCommitment. The
// cross-chain bridge transfer flows are not implemented here.
package bridge

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-hclog"
)

// tokenAndStakingABI is the minimal slice of the MOVEToken and
// MovementStaking contracts' interfaces the bridge helpers need (spec.md
// §6: approve, mint, stake, acceptGenesisCeremony), grounded the same way
// settlement.EthClient's mcrABI is: a hand-encoded ABI fragment, since no
// abigen output is run in this environment.
const tokenAndStakingABI = `[
  {"type":"function","name":"name","inputs":[],
    "outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
  {"type":"function","name":"approve","inputs":[
    {"name":"spender","type":"address"},
    {"name":"amount","type":"uint256"}
  ],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"mint","inputs":[
    {"name":"to","type":"address"},
    {"name":"amount","type":"uint256"}
  ],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"stake","inputs":[
    {"name":"mcr","type":"address"},
    {"name":"token","type":"address"},
    {"name":"amount","type":"uint256"}
  ],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"acceptGenesisCeremony","inputs":[],
    "outputs":[],"stateMutability":"nonpayable"}
]`

// Wallet is a single signer's view of the L1 chain: one go-ethereum
// client connection plus one private key, used to send the staking and
// genesis-ceremony transactions described in spec.md §6. Each participant
// in a genesis ceremony (governor, alice, bob, ...) gets its own Wallet,
// mirroring the original's per-actor provider construction.
type Wallet struct {
	logger  hclog.Logger
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	abi     abi.ABI
}

// NewWallet dials rpcURL and returns a Wallet signing with privateKeyHex.
func NewWallet(ctx context.Context, logger hclog.Logger, rpcURL, privateKeyHex string) (*Wallet, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", rpcURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bridge: parse private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bridge: fetch chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(tokenAndStakingABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bridge: parse token/staking abi: %w", err)
	}

	return &Wallet{
		logger:  logger.Named("bridge.wallet"),
		client:  client,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		abi:     parsed,
	}, nil
}

// Address is the wallet's signing address.
func (w *Wallet) Address() common.Address { return w.address }

// Close releases the underlying connection.
func (w *Wallet) Close() error { return w.client.Close() }

// call packs method(args...), signs and sends the resulting transaction
// against contract, and waits for it to be mined, mirroring the blocking
// `.call().await` sites in the original's genesis ceremony (each is
// awaited in order before the next step runs).
func (w *Wallet) call(ctx context.Context, contract common.Address, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := w.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode %s: %w", method, err)
	}

	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("bridge: fetch nonce: %w", err)
	}
	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("bridge: suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, contract, big.NewInt(0), 300_000, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("bridge: sign %s: %w", method, err)
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("bridge: send %s: %w", method, err)
	}

	w.logger.Debug("sent transaction", "method", method, "tx_hash", signed.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, w.client, signed)
	if err != nil {
		return nil, fmt.Errorf("bridge: wait for %s to be mined: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("bridge: %s reverted (tx %s)", method, signed.Hash().Hex())
	}
	return receipt, nil
}

// Approve calls MOVEToken.approve(spender, amount) (spec.md §6).
func (w *Wallet) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	_, err := w.call(ctx, token, "approve", spender, amount)
	return err
}

// Mint calls MOVEToken.mint(to, amount) (spec.md §6); in practice only the
// governor key has mint rights, but the helper is generic over its caller.
func (w *Wallet) Mint(ctx context.Context, token, to common.Address, amount *big.Int) error {
	_, err := w.call(ctx, token, "mint", to, amount)
	return err
}

// Stake calls MovementStaking.stake(mcr, token, amount) (spec.md §6).
func (w *Wallet) Stake(ctx context.Context, staking, mcr, token common.Address, amount *big.Int) error {
	_, err := w.call(ctx, staking, "stake", mcr, token, amount)
	return err
}

// AcceptGenesisCeremony calls MovementStaking.acceptGenesisCeremony()
// (spec.md §6); only the governor account is expected to call this in
// practice.
func (w *Wallet) AcceptGenesisCeremony(ctx context.Context, staking common.Address) error {
	_, err := w.call(ctx, staking, "acceptGenesisCeremony")
	return err
}

// TokenName reads MOVEToken.name(), the same sanity check the original's
// genesis ceremony logs before staking begins.
func (w *Wallet) TokenName(ctx context.Context, token common.Address) (string, error) {
	data, err := w.abi.Pack("name")
	if err != nil {
		return "", fmt.Errorf("bridge: encode name: %w", err)
	}
	out, err := w.client.CallContract(ctx, callMsg(w.address, token, data), nil)
	if err != nil {
		return "", fmt.Errorf("bridge: call name: %w", err)
	}
	var name string
	if err := w.abi.UnpackIntoInterface(&name, "name", out); err != nil {
		return "", fmt.Errorf("bridge: decode name: %w", err)
	}
	return name, nil
}

func callMsg(from, to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &to, Data: data}
}
