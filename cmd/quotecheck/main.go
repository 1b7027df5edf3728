// Binary quotecheck fetches a single Jupiter quote (real on mainnet, simulated
// elsewhere) and prints it, along with the wallet balance when a key is present.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"gravbot-go/internal/config"
	dex "gravbot-go/internal/dex/solana"

	solanago "github.com/gagliardetto/solana-go"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rc := cfg.Resolve()

	owner, err := dex.LoadPrivateKeyFromEnv()
	haveWallet := err == nil
	if !haveWallet {
		owner = solanago.NewWallet().PrivateKey
	}

	client := dex.NewJupiterClient(
		getEnv("SOLANA_RPC_URL", rc.Dex.RpcURL),
		getEnv("JUPITER_BASE_URL", rc.Dex.JupiterBase),
		rc.Dex.Network,
		owner,
		rc.Dex.Commitment,
		dex.WithQuoteTimeout(rc.QuoteTimeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 0.01 SOL -> USDC at the configured slippage.
	quote, err := client.GetQuote(ctx, solMint, usdcMint, 10_000_000, rc.SlippageBps)
	if err != nil {
		log.Fatalf("quote: %v", err)
	}
	log.Printf("network=%s in=%s out=%s impact=%.4f%%", rc.Dex.Network, quote.InAmount, quote.OutAmount, quote.PriceImpactPct)

	if haveWallet && rc.Dex.Network == dex.MainnetNetwork {
		lamports, err := client.Balance(ctx)
		if err != nil {
			log.Fatalf("balance: %v", err)
		}
		log.Printf("wallet %s balance %d lamports", owner.PublicKey(), lamports)
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
