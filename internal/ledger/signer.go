package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteSigner delegates transaction signing to the custodial wallet
// service. The service holds the keys; this process never sees them.
type RemoteSigner struct {
	url        string
	httpClient *http.Client
}

func NewRemoteSigner(url string, httpClient *http.Client) *RemoteSigner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteSigner{url: url, httpClient: httpClient}
}

func (s *RemoteSigner) Sign(ctx context.Context, intent TransferIntent) (string, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("failed to encode signing request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signing request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer returned status %d", resp.StatusCode)
	}

	var parsed struct {
		SignedTx string `json:"signed_tx"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode signer response: %v", err)
	}
	if parsed.SignedTx == "" {
		return "", fmt.Errorf("signer returned an empty transaction")
	}
	return parsed.SignedTx, nil
}
