package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-hclog"
)

// GenesisCeremonyConfig names the contracts and participants a genesis
// ceremony runs over, mirroring original_source's
// tests/e2e/genesis_ceremony.rs run_genesis_ceremony arguments.
type GenesisCeremonyConfig struct {
	RPCURL string

	MoveTokenAddress common.Address
	StakingAddress   common.Address
	McrAddress       common.Address

	// GovernorPrivateKeyHex mints and funds participants, then accepts
	// the ceremony once every participant has staked.
	GovernorPrivateKeyHex string
	// ParticipantPrivateKeyHexes each stakes StakeAmount for MCR in turn
	// (the original's "alice" and "bob").
	ParticipantPrivateKeyHexes []string

	StakeAmount *big.Int
}

// RunGenesisCeremony funds and stakes every configured participant for
// MCR and then has the governor accept the ceremony, reproducing the
// sequence in original_source's run_genesis_ceremony: governor mints and
// approves on each participant's behalf, each participant approves and
// stakes for MCR, and the governor accepts the ceremony last.
func RunGenesisCeremony(ctx context.Context, logger hclog.Logger, cfg GenesisCeremonyConfig) error {
	logger = logger.Named("bridge.genesis")

	governor, err := NewWallet(ctx, logger, cfg.RPCURL, cfg.GovernorPrivateKeyHex)
	if err != nil {
		return err
	}
	defer governor.Close()

	tokenName, err := governor.TokenName(ctx, cfg.MoveTokenAddress)
	if err != nil {
		return err
	}
	logger.Info("running genesis ceremony", "token", tokenName, "participants", len(cfg.ParticipantPrivateKeyHexes))

	for i, keyHex := range cfg.ParticipantPrivateKeyHexes {
		participant, err := NewWallet(ctx, logger, cfg.RPCURL, keyHex)
		if err != nil {
			return err
		}

		logger.Info("staking participant for MCR", "index", i, "address", participant.Address().Hex())

		if err := governor.Mint(ctx, cfg.MoveTokenAddress, participant.Address(), cfg.StakeAmount); err != nil {
			participant.Close()
			return err
		}
		if err := participant.Approve(ctx, cfg.MoveTokenAddress, cfg.McrAddress, cfg.StakeAmount); err != nil {
			participant.Close()
			return err
		}
		if err := participant.Stake(ctx, cfg.StakingAddress, cfg.McrAddress, cfg.MoveTokenAddress, cfg.StakeAmount); err != nil {
			participant.Close()
			return err
		}
		participant.Close()
	}

	logger.Info("governor accepting genesis ceremony")
	return governor.AcceptGenesisCeremony(ctx, cfg.StakingAddress)
}
