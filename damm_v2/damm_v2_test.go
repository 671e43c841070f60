package dammv2

import (
	"encoding/binary"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	dammv2gen "github.com/krazyTry/honorary-quote-fee/gen/damm_v2"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

func newKey() solanago.PublicKey {
	return solanago.NewWallet().PublicKey()
}

func tokenAccountData(mint, owner solanago.PublicKey, amount uint64) []byte {
	data := make([]byte, 0, hqfsolana.TokenAccountLen)
	data = append(data, mint[:]...)
	data = append(data, owner[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = append(data, make([]byte, 36)...)
	data = append(data, byte(hqfsolana.AccountStateInitialized))
	data = append(data, make([]byte, 12)...)
	data = binary.LittleEndian.AppendUint64(data, 0)
	data = append(data, make([]byte, 36)...)
	return data
}

func tokenInfo(mint, owner solanago.PublicKey, amount uint64) *rpc.Account {
	return &rpc.Account{
		Owner: token.ProgramID,
		Data:  rpc.DataBytesOrJSONFromBytes(tokenAccountData(mint, owner, amount)),
	}
}

func TestDerivePDAs(t *testing.T) {
	nft := newKey()
	if DerivePositionAddress(nft) != DerivePositionAddress(nft) {
		t.Fatal("DerivePositionAddress() not deterministic")
	}
	if DerivePositionAddress(nft) == DerivePositionNftAccount(nft) {
		t.Fatal("position and nft account collide")
	}
	if DerivePoolAuthority().IsZero() || DeriveEventAuthority().IsZero() {
		t.Fatal("authority derivation fail")
	}
	mint, pool := newKey(), newKey()
	if DeriveTokenVaultAddress(mint, pool) == DeriveTokenVaultAddress(pool, mint) {
		t.Fatal("vault seeds are order sensitive")
	}
}

func TestBuildClaimPositionFeeInstruction(t *testing.T) {
	amm := NewCpAmm(nil, rpc.CommitmentConfirmed)
	state := &PoolState{
		TokenAMint:  newKey(),
		TokenBMint:  newKey(),
		TokenAVault: newKey(),
		TokenBVault: newKey(),
		TokenBFlag:  1,
	}
	params := ClaimPositionFeeInstructionParams{
		Owner:              newKey(),
		Pool:               newKey(),
		Position:           newKey(),
		PositionNftAccount: newKey(),
		TokenAAccount:      newKey(),
		TokenBAccount:      newKey(),
		PoolState:          state,
	}
	ix, err := amm.BuildClaimPositionFeeInstruction(params)
	if err != nil {
		t.Fatal("BuildClaimPositionFeeInstruction() fail", err)
	}
	accounts, err := dammv2gen.ParseClaimPositionFeeInstruction(ix)
	if err != nil {
		t.Fatal("ParseClaimPositionFeeInstruction() fail", err)
	}
	checks := map[int]solanago.PublicKey{
		dammv2gen.ClaimPositionFeeAccountPoolAuthority:      amm.PoolAuthority,
		dammv2gen.ClaimPositionFeeAccountPool:               params.Pool,
		dammv2gen.ClaimPositionFeeAccountTokenAAccount:      params.TokenAAccount,
		dammv2gen.ClaimPositionFeeAccountTokenBAccount:      params.TokenBAccount,
		dammv2gen.ClaimPositionFeeAccountTokenBVault:        state.TokenBVault,
		dammv2gen.ClaimPositionFeeAccountPositionNftAccount: params.PositionNftAccount,
		dammv2gen.ClaimPositionFeeAccountOwner:              params.Owner,
		dammv2gen.ClaimPositionFeeAccountTokenAProgram:      token.ProgramID,
		dammv2gen.ClaimPositionFeeAccountTokenBProgram:      solanago.Token2022ProgramID,
		dammv2gen.ClaimPositionFeeAccountEventAuthority:     amm.EventAuthority,
	}
	for idx, want := range checks {
		if accounts[idx] != want {
			t.Fatalf("account %d = %s, want %s", idx, accounts[idx], want)
		}
	}

	params.PoolState = nil
	if _, err := amm.BuildClaimPositionFeeInstruction(params); err == nil {
		t.Fatal("built without pool state")
	}
}

func TestCheckPoolState(t *testing.T) {
	base, quote, pool := newKey(), newKey(), newKey()
	rec := distribution.Record{Policy: distribution.Policy{Pool: pool, BaseMint: base, QuoteMint: quote}}
	state := &PoolState{
		TokenAMint:  base,
		TokenBMint:  quote,
		TokenAVault: DeriveTokenVaultAddress(base, pool),
		TokenBVault: DeriveTokenVaultAddress(quote, pool),
	}
	if err := checkPoolState(rec, state); err != nil {
		t.Fatal("checkPoolState() fail", err)
	}

	swapped := *state
	swapped.TokenBVault = DeriveTokenVaultAddress(quote, newKey())
	if err := checkPoolState(rec, &swapped); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatal("foreign quote vault accepted", err)
	}
	swapped = *state
	swapped.TokenAVault = state.TokenBVault
	if err := checkPoolState(rec, &swapped); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatal("base vault mismatch accepted", err)
	}
	swapped = *state
	swapped.TokenBMint = newKey()
	if err := checkPoolState(rec, &swapped); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatal("mint change accepted", err)
	}
}

func TestClaimDelta(t *testing.T) {
	quote, base, owner := newKey(), newKey(), newKey()
	treasury, check := newKey(), newKey()
	watch := []solanago.PublicKey{treasury, check}
	before := []*hqfsolana.Account{
		{Address: treasury, Mint: quote, Owner: owner, Amount: 1_000},
		{Address: check, Mint: base, Owner: owner, Amount: 0},
	}

	claim, err := claimDelta(watch, before, []*rpc.Account{
		tokenInfo(quote, owner, 4_500),
		tokenInfo(base, owner, 0),
	}, 1_000)
	if err != nil {
		t.Fatal("claimDelta() fail", err)
	}
	if claim != (distribution.FeeClaim{QuoteClaimed: 3_500}) {
		t.Fatalf("unexpected claim %+v", claim)
	}

	claim, err = claimDelta(watch, before, []*rpc.Account{
		tokenInfo(quote, owner, 1_000),
		tokenInfo(base, owner, 7),
	}, 1_000)
	if err != nil {
		t.Fatal("claimDelta() fail", err)
	}
	if !claim.BaseFeePresent() {
		t.Fatal("base fee not reported")
	}

	if _, err := claimDelta(watch, before, []*rpc.Account{
		tokenInfo(quote, owner, 999),
		tokenInfo(base, owner, 0),
	}, 0); err == nil {
		t.Fatal("falling balance accepted")
	}
	if _, err := claimDelta(watch, before, []*rpc.Account{nil, nil}, 0); err == nil {
		t.Fatal("missing simulated accounts accepted")
	}
}

func TestClaimDeltaSweepsTreasurySurplus(t *testing.T) {
	quote, base, owner := newKey(), newKey(), newKey()
	treasury, check := newKey(), newKey()
	watch := []solanago.PublicKey{treasury, check}

	// 30 of dust carried plus 70 left behind when yesterday's real claim
	// moved more than its simulation.
	before := []*hqfsolana.Account{
		{Address: treasury, Mint: quote, Owner: owner, Amount: 100},
		{Address: check, Mint: base, Owner: owner, Amount: 0},
	}
	claim, err := claimDelta(watch, before, []*rpc.Account{
		tokenInfo(quote, owner, 600),
		tokenInfo(base, owner, 0),
	}, 30)
	if err != nil {
		t.Fatal("claimDelta() fail", err)
	}
	if claim.QuoteClaimed != 570 {
		t.Fatalf("claimed %d, want 570", claim.QuoteClaimed)
	}

	if _, err := claimDelta(watch, before, []*rpc.Account{
		tokenInfo(quote, owner, 100),
		tokenInfo(base, owner, 0),
	}, 101); !errors.Is(err, distribution.ErrInsufficientFunds) {
		t.Fatal("treasury below carried dust accepted", err)
	}
}

func TestTokenSnapshots(t *testing.T) {
	mint, owner := newKey(), newKey()
	addrs := []solanago.PublicKey{newKey(), newKey(), newKey()}
	infos := []*rpc.Account{
		tokenInfo(mint, owner, 1),
		nil,
		{Owner: solanago.SystemProgramID, Data: rpc.DataBytesOrJSONFromBytes(nil)},
	}
	snaps := tokenSnapshots(addrs, infos)
	if snaps[0].Address != addrs[0] || snaps[0].Mint != mint || snaps[0].Owner != owner || snaps[0].Amount != 1 {
		t.Fatalf("unexpected snapshot %+v", snaps[0])
	}
	if !snaps[1].Address.IsZero() || !snaps[2].Address.IsZero() {
		t.Fatal("non token accounts produced snapshots")
	}
}

func TestPoolSnapshot(t *testing.T) {
	addr := newKey()
	state := &PoolState{TokenAMint: newKey(), TokenBMint: newKey(), CollectFeeMode: distribution.CollectFeeModeOnlyB}
	snap := poolSnapshot(addr, state)
	if snap.BaseMint != state.TokenAMint || snap.QuoteMint != state.TokenBMint || snap.CollectFeeMode != 2 || snap.Address != addr {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
