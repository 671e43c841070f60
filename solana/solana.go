// Package solana holds the RPC and SPL token plumbing shared by the live
// adapters: account reads, token account and mint decoding, transfer
// instructions and transaction submission.
package solana

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	sendandconfirmtransaction "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// TxStatus is what the cluster knows about a submitted transaction.
type TxStatus uint8

const (
	// TxPending has not been seen at the sender's commitment yet and its
	// blockhash is still valid.
	TxPending TxStatus = iota
	TxLanded
	// TxFailed landed with an error; none of its instructions took effect.
	TxFailed
	// TxExpired was never seen and its blockhash can no longer land.
	TxExpired
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxLanded:
		return "landed"
	case TxFailed:
		return "failed"
	case TxExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Sender signs and submits transactions. With Simulate set it only runs
// them through simulateTransaction.
type Sender struct {
	RPC        *rpc.Client
	WS         *ws.Client
	Commitment rpc.CommitmentType
	Simulate   bool
}

func NewSender(rpcClient *rpc.Client, wsClient *ws.Client, commitment rpc.CommitmentType, simulate bool) *Sender {
	if commitment == "" {
		commitment = rpc.CommitmentFinalized
	}
	return &Sender{RPC: rpcClient, WS: wsClient, Commitment: commitment, Simulate: simulate}
}

// BuildTransaction assembles and signs instructions. payer pays fees; every
// other required signature must come from signers.
func (s *Sender) BuildTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*solana.Transaction, error) {
	tx, _, err := s.SignTransaction(ctx, instructions, payer, signers...)
	return tx, err
}

// SignTransaction is BuildTransaction that also returns the last block height
// at which the transaction can land. tx.Signatures[0] identifies it.
func (s *Sender) SignTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, signers ...solana.PrivateKey) (*solana.Transaction, uint64, error) {
	latestBlockhash, lastValid, err := GetLatestBlockhash(ctx, s.RPC)
	if err != nil {
		return nil, 0, err
	}

	tx, err := solana.NewTransaction(instructions, latestBlockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, 0, err
	}

	keys := append([]solana.PrivateKey{payer}, signers...)
	if _, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if key.Equals(keys[i].PublicKey()) {
				return &keys[i]
			}
		}
		return nil
	}); err != nil {
		return nil, 0, err
	}
	return tx, lastValid, nil
}

// SimulateWithAccounts simulates tx and returns the post-state of watch.
func (s *Sender) SimulateWithAccounts(ctx context.Context, tx *solana.Transaction, watch ...solana.PublicKey) (*rpc.SimulateTransactionResult, error) {
	opts := &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: s.Commitment,
	}
	if len(watch) > 0 {
		opts.Accounts = &rpc.SimulateTransactionAccountsOpts{
			Encoding:  solana.EncodingBase64,
			Addresses: watch,
		}
	}
	out, err := s.RPC.SimulateTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("simulate: empty response")
	}
	if out.Value.Err != nil {
		return out.Value, fmt.Errorf("simulate: %v (logs: %v)", out.Value.Err, out.Value.Logs)
	}
	return out.Value, nil
}

// Submit sends a signed transaction and waits for confirmation over the
// websocket. In simulate mode it only simulates.
func (s *Sender) Submit(ctx context.Context, tx *solana.Transaction) error {
	if s.Simulate {
		_, err := s.SimulateWithAccounts(ctx, tx)
		return err
	}

	sig, err := s.RPC.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: s.Commitment,
		},
	)
	if err != nil {
		return err
	}

	if s.WS != nil {
		if _, err = sendandconfirmtransaction.WaitForConfirmation(ctx, s.WS, sig, nil); err != nil {
			return fmt.Errorf("confirm %s: %w", sig, err)
		}
	}
	return nil
}

// Status reports whether sig landed. The block height is read before the
// signature so that a transaction still unseen once its blockhash expired
// is known never to land.
func (s *Sender) Status(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (TxStatus, error) {
	height, err := s.RPC.GetBlockHeight(ctx, s.Commitment)
	if err != nil {
		return TxPending, fmt.Errorf("block height: %w", err)
	}
	out, err := s.RPC.GetSignatureStatuses(ctx, true, sig)
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		return TxPending, fmt.Errorf("signature status %s: %w", sig, err)
	}
	if out != nil && len(out.Value) == 1 && out.Value[0] != nil {
		st := out.Value[0]
		if st.Err != nil {
			return TxFailed, nil
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return TxLanded, nil
		}
		return TxPending, nil
	}
	if height > lastValidBlockHeight {
		return TxExpired, nil
	}
	return TxPending, nil
}
