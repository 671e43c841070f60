package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// statusNode answers getBlockHeight and getSignatureStatuses with fixed
// values. status is the JSON of the single signature status entry.
func statusNode(t *testing.T, height uint64, status string) *Sender {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var result string
		switch req.Method {
		case "getBlockHeight":
			result = fmt.Sprint(height)
		case "getSignatureStatuses":
			result = `{"context":{"slot":1},"value":[` + status + `]}`
		default:
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return NewSender(rpc.New(srv.URL), nil, rpc.CommitmentConfirmed, false)
}

func TestSenderStatus(t *testing.T) {
	tests := []struct {
		name      string
		height    uint64
		status    string
		lastValid uint64
		want      TxStatus
	}{
		{"finalized", 100, `{"slot":5,"confirmations":null,"err":null,"confirmationStatus":"finalized"}`, 150, TxLanded},
		{"confirmed after expiry", 200, `{"slot":5,"confirmations":3,"err":null,"confirmationStatus":"confirmed"}`, 150, TxLanded},
		{"processed", 100, `{"slot":5,"confirmations":0,"err":null,"confirmationStatus":"processed"}`, 150, TxPending},
		{"failed", 100, `{"slot":5,"confirmations":null,"err":{"InstructionError":[1,{"Custom":1}]},"confirmationStatus":"finalized"}`, 150, TxFailed},
		{"unseen", 100, `null`, 150, TxPending},
		{"unseen at last valid height", 150, `null`, 150, TxPending},
		{"unseen after expiry", 151, `null`, 150, TxExpired},
		{"unknown to the node", 100, ``, 150, TxPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := statusNode(t, tt.height, tt.status)
			got, err := s.Status(context.Background(), solana.Signature{1}, tt.lastValid)
			if err != nil {
				t.Fatal("Status() fail", err)
			}
			if got != tt.want {
				t.Fatalf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}
