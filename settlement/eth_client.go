package settlement

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-hclog"
	"github.com/movementlabsxyz/full-node/block"
	"github.com/movementlabsxyz/full-node/nodeerrs"
)

// mcrABI is the minimal slice of the MCR settlement contract's interface
// this client needs (grounded on original_source's eth_client MCR binding,
// protocol-units/settlement/mcr/client): postBlockCommitment writes a
// commitment, BlockCommitmentAccepted/Rejected are emitted back.
const mcrABI = `[
  {"type":"function","name":"postBlockCommitment","inputs":[
    {"name":"height","type":"uint256"},
    {"name":"blockId","type":"bytes32"},
    {"name":"stateRoot","type":"bytes32"}
  ],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"event","name":"BlockCommitmentAccepted","inputs":[
    {"name":"height","type":"uint256","indexed":true},
    {"name":"blockId","type":"bytes32","indexed":false},
    {"name":"stateRoot","type":"bytes32","indexed":false}
  ],"anonymous":false},
  {"type":"event","name":"BlockCommitmentRejected","inputs":[
    {"name":"height","type":"uint256","indexed":true},
    {"name":"reason","type":"string","indexed":false}
  ],"anonymous":false}
]`

// EthClient is the production Manager, posting commitments to the MCR
// contract on L1 over an ethclient.Client connection (spec.md §4.6).
type EthClient struct {
	logger hclog.Logger

	client     *ethclient.Client
	contract   common.Address
	chainID    *big.Int
	signerKey  *ecdsa.PrivateKey
	signerAddr common.Address
	parsedABI  abi.ABI
	policy     RejectionPolicy

	events chan block.BlockCommitmentEvent

	mu     sync.Mutex
	nonce  uint64
	closed chan struct{}
}

// NewEthClient dials rpcURL and returns an EthClient able to post
// commitments to contractAddr, signing with privateKeyHex (spec.md §6,
// read from MCR_PRIVATE_KEY per config.Env).
func NewEthClient(ctx context.Context, logger hclog.Logger, rpcURL, privateKeyHex string, contractAddr common.Address, policy RejectionPolicy) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: dial %s: %w", rpcURL, err)}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, &nodeerrs.ConfigError{Cause: fmt.Errorf("settlement: parse signer key: %w", err)}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: fetch chain id: %w", err)}
	}

	parsed, err := abi.JSON(strings.NewReader(mcrABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("settlement: parse MCR abi: %w", err)
	}

	signerAddr := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := client.PendingNonceAt(ctx, signerAddr)
	if err != nil {
		client.Close()
		return nil, &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: fetch nonce: %w", err)}
	}

	return &EthClient{
		logger:     logger.Named("settlement.eth"),
		client:     client,
		contract:   contractAddr,
		chainID:    chainID,
		signerKey:  key,
		signerAddr: signerAddr,
		parsedABI:  parsed,
		policy:     policy,
		events:     make(chan block.BlockCommitmentEvent, 64),
		nonce:      nonce,
		closed:     make(chan struct{}),
	}, nil
}

// PostBlockCommitment implements Manager.
func (e *EthClient) PostBlockCommitment(ctx context.Context, c block.BlockCommitment) error {
	data, err := e.parsedABI.Pack("postBlockCommitment", new(big.Int).SetUint64(c.Height), [32]byte(c.BlockID), [32]byte(c.StateRoot))
	if err != nil {
		return fmt.Errorf("settlement: encode postBlockCommitment: %w", err)
	}

	e.mu.Lock()
	nonce := e.nonce
	e.mu.Unlock()

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: suggest gas price: %w", err)}
	}

	tx := types.NewTransaction(nonce, e.contract, big.NewInt(0), 300_000, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.signerKey)
	if err != nil {
		return fmt.Errorf("settlement: sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: send postBlockCommitment: %w", err)}
	}

	e.mu.Lock()
	e.nonce++
	e.mu.Unlock()

	e.logger.Debug("posted block commitment", "height", c.Height, "tx_hash", signed.Hash().Hex())
	return nil
}

// Events implements Manager.
func (e *EthClient) Events() <-chan block.BlockCommitmentEvent { return e.events }

// Close implements Manager.
func (e *EthClient) Close() error {
	close(e.closed)
	e.client.Close()
	return nil
}

// WatchCommitments subscribes to the contract's BlockCommitmentAccepted
// and BlockCommitmentRejected logs and republishes them on Events until
// ctx is canceled or Close is called. cmd/fullnode runs it as its own
// goroutine alongside the driver, not inside node.Driver (spec.md §4.5).
func (e *EthClient) WatchCommitments(ctx context.Context) error {
	query := ethereum.FilterQuery{Addresses: []common.Address{e.contract}}
	logs := make(chan types.Log, 64)

	sub, err := e.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: subscribe logs: %w", err)}
	}
	defer sub.Unsubscribe()

	acceptedTopic := e.parsedABI.Events["BlockCommitmentAccepted"].ID
	rejectedTopic := e.parsedABI.Events["BlockCommitmentRejected"].ID

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.closed:
			return nil
		case err := <-sub.Err():
			return &nodeerrs.SettlementTransient{Cause: fmt.Errorf("settlement: log subscription: %w", err)}
		case lg := <-logs:
			ev, err := e.decodeEvent(lg, acceptedTopic, rejectedTopic)
			if err != nil {
				e.logger.Warn("dropping undecodable settlement log", "error", err)
				continue
			}
			if ev == nil {
				continue
			}
			haltErr := e.checkRejectionPolicy(ev)
			select {
			case e.events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
			if haltErr != nil {
				return haltErr
			}
		}
	}
}

// checkRejectionPolicy returns a SettlementRejection error when ev is a
// Rejected event and the policy is PolicyHalt, so WatchCommitments stops
// the errgroup it runs under and requires operator intervention (spec.md
// §9: "Settlement reversion"). PolicyLogOnly just logs and keeps streaming.
func (e *EthClient) checkRejectionPolicy(ev block.BlockCommitmentEvent) error {
	rej, ok := ev.(block.Rejected)
	if !ok {
		return nil
	}
	if e.policy != PolicyHalt {
		e.logger.Warn("settlement rejected commitment", "height", rej.Height, "reason", rej.Reason)
		return nil
	}
	e.logger.Error("halting on settlement rejection", "height", rej.Height, "reason", rej.Reason)
	return &nodeerrs.SettlementRejection{Height: rej.Height, Reason: rej.Reason}
}

func (e *EthClient) decodeEvent(lg types.Log, acceptedTopic, rejectedTopic common.Hash) (block.BlockCommitmentEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, nil
	}
	switch lg.Topics[0] {
	case acceptedTopic:
		var decoded struct {
			BlockID   [32]byte
			StateRoot [32]byte
		}
		if err := e.parsedABI.UnpackIntoInterface(&decoded, "BlockCommitmentAccepted", lg.Data); err != nil {
			return nil, err
		}
		height := new(big.Int).SetBytes(lg.Topics[1][:]).Uint64()
		return block.Accepted{Commitment: block.BlockCommitment{
			Height:    height,
			BlockID:   block.ID(decoded.BlockID),
			StateRoot: decoded.StateRoot,
		}}, nil
	case rejectedTopic:
		var decoded struct{ Reason string }
		if err := e.parsedABI.UnpackIntoInterface(&decoded, "BlockCommitmentRejected", lg.Data); err != nil {
			return nil, err
		}
		height := new(big.Int).SetBytes(lg.Topics[1][:]).Uint64()
		return block.Rejected{Height: height, Reason: decoded.Reason}, nil
	default:
		return nil, nil
	}
}
