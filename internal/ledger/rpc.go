package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RPCClient implements Client over JSON-RPC 2.0 against a chain node.
type RPCClient struct {
	url        string
	mint       string
	signer     Signer
	httpClient *http.Client
	logger     *slog.Logger

	confirmRetries int
	confirmDelay   time.Duration
	submitSettle   time.Duration
}

type Options struct {
	URL    string
	Mint   string
	Signer Signer

	// ConfirmRetries bounds the confirmation poll; ConfirmDelay is the
	// initial poll interval and doubles after every miss. SubmitSettle is
	// the grace period between submission and the first poll.
	ConfirmRetries int
	ConfirmDelay   time.Duration
	SubmitSettle   time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewRPCClient(opts Options) *RPCClient {
	if opts.ConfirmRetries <= 0 {
		opts.ConfirmRetries = 4
	}
	if opts.ConfirmDelay <= 0 {
		opts.ConfirmDelay = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RPCClient{
		url:            opts.URL,
		mint:           opts.Mint,
		signer:         opts.Signer,
		httpClient:     opts.HTTPClient,
		logger:         opts.Logger,
		confirmRetries: opts.ConfirmRetries,
		confirmDelay:   opts.ConfirmDelay,
		submitSettle:   opts.SubmitSettle,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %v", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %v", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %v", method, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%s error %d: %s", method, parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

const lamportsPerUnit = 1_000_000_000

func (c *RPCClient) NativeBalance(ctx context.Context, wallet string) float64 {
	result, err := c.call(ctx, "getBalance", wallet)
	if err != nil {
		c.logger.Warn("native balance query failed, treating as zero", "wallet", wallet, "error", err)
		return 0
	}

	var value struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(result, &value); err != nil {
		c.logger.Warn("native balance response malformed, treating as zero", "wallet", wallet, "error", err)
		return 0
	}
	return float64(value.Value) / lamportsPerUnit
}

func (c *RPCClient) TokenBalance(ctx context.Context, wallet string) (float64, bool) {
	result, err := c.call(ctx, "getTokenAccountsByOwner", wallet,
		map[string]string{"mint": c.mint},
		map[string]string{"encoding": "jsonParsed"},
	)
	if err != nil {
		c.logger.Warn("token balance query failed", "wallet", wallet, "error", err)
		return 0, false
	}

	var parsed struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								UIAmount float64 `json:"uiAmount"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		c.logger.Warn("token balance response malformed", "wallet", wallet, "error", err)
		return 0, false
	}
	if len(parsed.Value) == 0 {
		// No token account means a confirmed zero balance.
		return 0, true
	}
	return parsed.Value[0].Account.Data.Parsed.Info.TokenAmount.UIAmount, true
}

func (c *RPCClient) TransferNative(ctx context.Context, from, to string, amount float64) TransferResult {
	return c.submitAndConfirm(ctx, TransferIntent{
		From:    from,
		Outputs: []Output{{To: to, Amount: amount}},
	})
}

func (c *RPCClient) TransferNativeSplit(ctx context.Context, from, primary, secondary string, amount, primaryShare, secondaryShare float64) TransferResult {
	return c.submitAndConfirm(ctx, TransferIntent{
		From: from,
		Outputs: []Output{
			{To: primary, Amount: amount * primaryShare},
			{To: secondary, Amount: amount * secondaryShare},
		},
	})
}

func (c *RPCClient) TransferToken(ctx context.Context, from, to string, amount float64) TransferResult {
	return c.submitAndConfirm(ctx, TransferIntent{
		From:    from,
		Mint:    c.mint,
		Outputs: []Output{{To: to, Amount: amount}},
	})
}

// submitAndConfirm signs, submits once and polls for confirmation. A
// failed submission is never resubmitted: that is the caller's point of
// no return and retrying would risk a double spend.
func (c *RPCClient) submitAndConfirm(ctx context.Context, intent TransferIntent) TransferResult {
	signed, err := c.signer.Sign(ctx, intent)
	if err != nil {
		c.logger.Error("transfer signing failed", "from", intent.From, "error", err)
		return TransferResult{Status: TransferSubmitFailed, Err: err}
	}

	result, err := c.call(ctx, "sendTransaction", signed)
	if err != nil {
		c.logger.Error("transfer submission failed", "from", intent.From, "error", err)
		return TransferResult{Status: TransferSubmitFailed, Err: err}
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil || signature == "" {
		err = fmt.Errorf("no signature in sendTransaction response")
		c.logger.Error("transfer submission failed", "from", intent.From, "error", err)
		return TransferResult{Status: TransferSubmitFailed, Err: err}
	}

	if !c.wait(ctx, c.submitSettle) {
		return TransferResult{Status: TransferUnconfirmed, TxRef: signature, Err: ctx.Err()}
	}

	delay := c.confirmDelay
	for attempt := 0; attempt < c.confirmRetries; attempt++ {
		if c.isConfirmed(ctx, signature) {
			return TransferResult{Status: TransferConfirmed, TxRef: signature}
		}
		if !c.wait(ctx, delay) {
			break
		}
		delay *= 2
	}

	c.logger.Warn("transfer not confirmed within budget", "tx_ref", signature, "retries", c.confirmRetries)
	return TransferResult{Status: TransferUnconfirmed, TxRef: signature, Err: fmt.Errorf("transaction %s not confirmed", signature)}
}

func (c *RPCClient) isConfirmed(ctx context.Context, signature string) bool {
	result, err := c.call(ctx, "getTransaction", signature)
	if err != nil {
		c.logger.Debug("confirmation poll failed", "tx_ref", signature, "error", err)
		return false
	}
	return len(result) > 0 && string(result) != "null"
}

func (c *RPCClient) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
