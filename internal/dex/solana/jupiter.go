// Package solana wraps the Jupiter quote API and wallet plumbing used by the
// execution gate.
package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MainnetNetwork is the only network the client will actually quote against; on any
// other network quotes are simulated locally.
const MainnetNetwork = "mainnet-beta"

const defaultQuoteTimeout = 8 * time.Second

// NetworkError reports a transport failure or non-2xx response from the quote API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a malformed quote API response.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Quote mirrors the Jupiter v6 quote response.
type Quote struct {
	InputMint      string  `json:"inputMint"`
	OutputMint     string  `json:"outputMint"`
	InAmount       string  `json:"inAmount"`
	OutAmount      string  `json:"outAmount"`
	OtherAmount    string  `json:"otherAmountThreshold"`
	SwapMode       string  `json:"swapMode"`
	SlippageBps    int     `json:"slippageBps"`
	PriceImpactPct float64 `json:"priceImpactPct"`
	ContextSlot    uint64  `json:"contextSlot"`
	TimeTaken      float64 `json:"timeTaken"`
}

// JupiterClient fetches swap quotes from Jupiter, or simulates them deterministically
// when pointed at a non-primary network.
type JupiterClient struct {
	Base    string
	Network string
	RPC     *rpc.Client
	Owner   solana.PrivateKey
	Commit  rpc.CommitmentType
	Http    *http.Client
}

// Option tweaks client construction.
type Option func(*JupiterClient)

// WithQuoteTimeout overrides the default HTTP timeout on quote requests.
func WithQuoteTimeout(d time.Duration) Option {
	return func(j *JupiterClient) {
		if d > 0 {
			j.Http.Timeout = d
		}
	}
}

// NewJupiterClient builds a quote client for the given network.
func NewJupiterClient(rpcURL, base, network string, owner solana.PrivateKey, commit string, opts ...Option) *JupiterClient {
	c := rpc.CommitmentConfirmed
	switch commit {
	case "processed":
		c = rpc.CommitmentProcessed
	case "finalized":
		c = rpc.CommitmentFinalized
	}
	j := &JupiterClient{
		Base:    base,
		Network: network,
		RPC:     rpc.New(rpcURL),
		Owner:   owner,
		Commit:  c,
		Http:    &http.Client{Timeout: defaultQuoteTimeout},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// GetQuote returns a swap quote for amount (smallest units of the input mint).
// Off-mainnet the quote is computed locally instead of calling the API.
func (j *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	if j.Network != MainnetNetwork {
		return SimulateQuote(inputMint, outputMint, amount, slippageBps), nil
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", slippageBps))
	q.Set("onlyDirectRoutes", "false")
	u := j.Base + "/v6/quote?" + q.Encode()

	req, _ := http.NewRequestWithContext(ctx, "GET", u, nil)
	resp, err := j.Http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "jupiter quote", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, &NetworkError{Op: "jupiter quote", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var out Quote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ParseError{Op: "jupiter quote", Err: err}
	}
	return &out, nil
}

// SimulateQuote produces the deterministic off-network quote: the output amount is the
// input less slippage, the price impact scales with the slippage budget.
func SimulateQuote(inputMint, outputMint string, amount uint64, slippageBps int) *Quote {
	out := amount * uint64(10000-slippageBps) / 10000
	return &Quote{
		InputMint:      inputMint,
		OutputMint:     outputMint,
		InAmount:       fmt.Sprintf("%d", amount),
		OutAmount:      fmt.Sprintf("%d", out),
		OtherAmount:    fmt.Sprintf("%d", out),
		SwapMode:       "ExactIn",
		SlippageBps:    slippageBps,
		PriceImpactPct: float64(slippageBps) / 500,
	}
}

// Balance returns the owner wallet's SOL balance in lamports.
func (j *JupiterClient) Balance(ctx context.Context) (uint64, error) {
	out, err := j.RPC.GetBalance(ctx, j.Owner.PublicKey(), j.Commit)
	if err != nil {
		return 0, &NetworkError{Op: "get balance", Err: err}
	}
	return out.Value, nil
}
