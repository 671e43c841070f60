package dammv2

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
	"github.com/krazyTry/honorary-quote-fee/solana/token2022"
)

// Inspector reads pool, position and token accounts for setup checks.
type Inspector struct {
	amm *CpAmm
}

var _ distribution.PoolInspector = (*Inspector)(nil)

func NewInspector(amm *CpAmm) *Inspector {
	return &Inspector{amm: amm}
}

func (i *Inspector) InspectPool(ctx context.Context, pool solanago.PublicKey) (distribution.PoolSnapshot, error) {
	state, err := i.amm.FetchPoolState(ctx, pool)
	if err != nil {
		return distribution.PoolSnapshot{}, err
	}
	snap := poolSnapshot(pool, state)
	if hqfsolana.GetTokenProgram(state.TokenBFlag).Equals(solanago.Token2022ProgramID) {
		cfg, err := token2022.GetTransferFeeConfig(ctx, i.amm.Client, state.TokenBMint)
		if err != nil {
			return distribution.PoolSnapshot{}, fmt.Errorf("quote mint %s: %w", state.TokenBMint, err)
		}
		snap.QuoteTransferFeeBps = token2022.MaxBasisPoints(cfg)
	}
	return snap, nil
}

func poolSnapshot(addr solanago.PublicKey, state *PoolState) distribution.PoolSnapshot {
	return distribution.PoolSnapshot{
		Address:        addr,
		BaseMint:       state.TokenAMint,
		QuoteMint:      state.TokenBMint,
		Partner:        state.Partner,
		CollectFeeMode: state.CollectFeeMode,
	}
}

func (i *Inspector) InspectPosition(ctx context.Context, h distribution.HonoraryPosition) (distribution.PositionSnapshot, error) {
	pos, err := i.amm.FetchPositionState(ctx, h.Position)
	if err != nil {
		return distribution.PositionSnapshot{}, err
	}
	nft, _, err := hqfsolana.GetMint(ctx, i.amm.Client, pos.NftMint, i.amm.Commitment)
	if err != nil {
		return distribution.PositionSnapshot{}, err
	}
	accounts, err := i.tokenAccounts(ctx, h.PositionNftAccount, h.QuoteTreasury, h.BaseFeeCheck)
	if err != nil {
		return distribution.PositionSnapshot{}, err
	}
	return distribution.PositionSnapshot{
		Pool:           pos.Pool,
		NftMint:        pos.NftMint,
		NftDecimals:    nft.Decimals,
		NftAccount:     accounts[0],
		PendingBase:    pos.FeeAPending,
		PendingQuote:   pos.FeeBPending,
		TotalLiquidity: pos.TotalLiquidity(),
		QuoteTreasury:  accounts[1],
		BaseFeeCheck:   accounts[2],
	}, nil
}

func (i *Inspector) InspectTokenAccount(ctx context.Context, account solanago.PublicKey) (distribution.TokenAccountSnapshot, error) {
	accounts, err := i.tokenAccounts(ctx, account)
	if err != nil {
		return distribution.TokenAccountSnapshot{}, err
	}
	if accounts[0].Address.IsZero() {
		return distribution.TokenAccountSnapshot{}, fmt.Errorf("token account %s: %w", account, ErrAccountNotFound)
	}
	return accounts[0], nil
}

// tokenAccounts returns a zero snapshot for accounts that are missing or not
// token accounts, which the setup checks then reject by address.
func (i *Inspector) tokenAccounts(ctx context.Context, addrs ...solanago.PublicKey) ([]distribution.TokenAccountSnapshot, error) {
	out, err := hqfsolana.GetMultipleAccountInfo(ctx, i.amm.Client, addrs, i.amm.Commitment)
	if err != nil {
		return nil, err
	}
	return tokenSnapshots(addrs, out.Value), nil
}

func tokenSnapshots(addrs []solanago.PublicKey, infos []*rpc.Account) []distribution.TokenAccountSnapshot {
	snaps := make([]distribution.TokenAccountSnapshot, len(addrs))
	for n, addr := range addrs {
		if n >= len(infos) || infos[n] == nil || !hqfsolana.IsTokenProgram(infos[n].Owner) {
			continue
		}
		acct, err := hqfsolana.DecodeTokenAccount(addr, infos[n].Data.GetBinary())
		if err != nil {
			continue
		}
		snaps[n] = distribution.TokenAccountSnapshot{
			Address: addr,
			Mint:    acct.Mint,
			Owner:   acct.Owner,
			Amount:  acct.Amount,
		}
	}
	return snaps
}
