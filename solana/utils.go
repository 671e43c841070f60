package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/tidwall/gjson"
)

// GetLatestBlockhash returns the finalized blockhash and the last block
// height at which a transaction using it can still land.
func GetLatestBlockhash(ctx context.Context, rpcClient *rpc.Client) (solana.Hash, uint64, error) {
	recent, err := rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, 0, err
	}
	if recent == nil || recent.Value == nil {
		return solana.Hash{}, 0, fmt.Errorf("latest blockhash: empty response")
	}
	return recent.Value.Blockhash, recent.Value.LastValidBlockHeight, nil
}

func GetAccountInfo(ctx context.Context, rpcClient *rpc.Client, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetAccountInfoResult, error) {
	return rpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: commitment})
}

func GetMultipleAccountInfo(ctx context.Context, rpcClient *rpc.Client, accounts []solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetMultipleAccountsResult, error) {
	return rpcClient.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{Commitment: commitment, Encoding: solana.EncodingBase64})
}

func GetCurrentEpoch(ctx context.Context, rpcClient *rpc.Client) (uint64, error) {
	epochInfo, err := rpcClient.GetEpochInfo(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, err
	}
	return epochInfo.Epoch, nil
}

// GetTokenAccounts fetches and decodes token accounts. Every account must
// exist and be owned by a token program.
func GetTokenAccounts(ctx context.Context, rpcClient *rpc.Client, commitment rpc.CommitmentType, addresses ...solana.PublicKey) ([]*Account, error) {
	out, err := GetMultipleAccountInfo(ctx, rpcClient, addresses, commitment)
	if err != nil {
		return nil, err
	}
	return DecodeTokenAccounts(addresses, out.Value)
}

// DecodeTokenAccounts decodes raw account infos returned for addresses.
func DecodeTokenAccounts(addresses []solana.PublicKey, infos []*rpc.Account) ([]*Account, error) {
	if len(infos) != len(addresses) {
		return nil, fmt.Errorf("got %d accounts for %d addresses", len(infos), len(addresses))
	}
	list := make([]*Account, len(addresses))
	for i, info := range infos {
		if info == nil {
			return nil, fmt.Errorf("token account %s not found", addresses[i])
		}
		if !IsTokenProgram(info.Owner) {
			return nil, fmt.Errorf("account %s is owned by %s, not a token program", addresses[i], info.Owner)
		}
		acct, err := DecodeTokenAccount(addresses[i], info.Data.GetBinary())
		if err != nil {
			return nil, err
		}
		acct.Program = info.Owner
		list[i] = acct
	}
	return list, nil
}

// GetMint fetches and decodes a mint.
func GetMint(ctx context.Context, rpcClient *rpc.Client, mint solana.PublicKey, commitment rpc.CommitmentType) (*Token, []byte, error) {
	out, err := GetAccountInfo(ctx, rpcClient, mint, commitment)
	if err != nil {
		return nil, nil, err
	}
	if out == nil || out.Value == nil {
		return nil, nil, fmt.Errorf("mint %s not found", mint)
	}
	data := out.Value.Data.GetBinary()
	tok, err := DecodeMint(out.Value.Owner, data)
	if err != nil {
		return nil, nil, err
	}
	return tok, data, nil
}

// GetParsedTokenBalance reads a token account through the jsonParsed
// encoding and returns its mint and raw amount.
func GetParsedTokenBalance(ctx context.Context, rpcClient *rpc.Client, account solana.PublicKey, commitment rpc.CommitmentType) (solana.PublicKey, uint64, error) {
	out, err := rpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: commitment,
		Encoding:   solana.EncodingJSONParsed,
	})
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if out == nil || out.Value == nil {
		return solana.PublicKey{}, 0, fmt.Errorf("token account %s not found", account)
	}
	return ParseTokenBalance(out.Value.Data.GetRawJSON())
}

// ParseTokenBalance extracts mint and amount from a jsonParsed token account.
func ParseTokenBalance(raw []byte) (solana.PublicKey, uint64, error) {
	if gjson.GetBytes(raw, "parsed.type").String() != "account" {
		return solana.PublicKey{}, 0, fmt.Errorf("not a parsed token account")
	}
	mint, err := solana.PublicKeyFromBase58(gjson.GetBytes(raw, "parsed.info.mint").String())
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("parsed token account mint: %w", err)
	}
	return mint, gjson.GetBytes(raw, "parsed.info.tokenAmount.amount").Uint(), nil
}
