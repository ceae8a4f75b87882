package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WalletProvider is the wallet directory collaborator: it provisions a
// custodial wallet for a new player. Custody stays on the other side.
type WalletProvider interface {
	NewWallet(ctx context.Context, userID int64) (string, error)
}

// RemoteWalletProvider provisions wallets through the custodial wallet
// service's HTTP API.
type RemoteWalletProvider struct {
	url        string
	httpClient *http.Client
}

func NewRemoteWalletProvider(url string, httpClient *http.Client) *RemoteWalletProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteWalletProvider{url: url, httpClient: httpClient}
}

func (p *RemoteWalletProvider) NewWallet(ctx context.Context, userID int64) (string, error) {
	body, err := json.Marshal(map[string]int64{"user_id": userID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet provisioning failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet service returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode wallet response: %v", err)
	}
	if parsed.Address == "" {
		return "", fmt.Errorf("wallet service returned an empty address")
	}
	return parsed.Address, nil
}
