// Package ledger talks to the chain RPC node: balance queries, transfer
// submission and bounded confirmation polling. The payout engine only
// sees the Client interface and the tagged TransferResult, never raw
// transport errors.
package ledger

import "context"

// TransferStatus tags the result of a transfer attempt.
type TransferStatus string

const (
	// TransferConfirmed: submitted and seen on chain within the polling
	// budget.
	TransferConfirmed TransferStatus = "confirmed"

	// TransferSubmitFailed: signing or submission failed. Nothing was
	// sent, so the operation is safe to retry from scratch.
	TransferSubmitFailed TransferStatus = "submit_failed"

	// TransferUnconfirmed: submitted but not seen on chain before the
	// polling budget ran out. The transaction may still land; it is never
	// resubmitted automatically.
	TransferUnconfirmed TransferStatus = "unconfirmed"
)

// TransferResult is the tagged outcome of one transfer operation. TxRef
// is set whenever a submission produced a signature, including the
// unconfirmed case.
type TransferResult struct {
	Status TransferStatus
	TxRef  string
	Err    error
}

func (r TransferResult) Confirmed() bool {
	return r.Status == TransferConfirmed
}

// Client is the ledger contract the payout engine depends on.
type Client interface {
	// NativeBalance returns the wallet's native-currency balance.
	// Transport failures are logged and reported as zero, never returned.
	NativeBalance(ctx context.Context, wallet string) float64

	// TokenBalance returns the wallet's token balance. ok=false means the
	// query itself failed, which is distinct from a confirmed zero.
	TokenBalance(ctx context.Context, wallet string) (amount float64, ok bool)

	// TransferNative moves amount from one wallet to another.
	TransferNative(ctx context.Context, from, to string, amount float64) TransferResult

	// TransferNativeSplit moves shares of one logical payment to two
	// recipients in a single transaction: primaryShare*amount to primary
	// and secondaryShare*amount to secondary. Both land or neither does.
	// Any remainder of the amount stays with the payer.
	TransferNativeSplit(ctx context.Context, from, primary, secondary string, amount, primaryShare, secondaryShare float64) TransferResult

	// TransferToken moves token units of the configured mint.
	TransferToken(ctx context.Context, from, to string, amount float64) TransferResult
}

// Output is one recipient of a transfer.
type Output struct {
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// TransferIntent describes a transfer for the signing integration.
// Token moves carry the mint; native moves leave it empty.
type TransferIntent struct {
	From    string   `json:"from"`
	Mint    string   `json:"mint,omitempty"`
	Outputs []Output `json:"outputs"`
}

// Signer turns a transfer intent into a serialized signed transaction
// the RPC node accepts. Key custody lives behind this interface.
type Signer interface {
	Sign(ctx context.Context, intent TransferIntent) (string, error)
}
