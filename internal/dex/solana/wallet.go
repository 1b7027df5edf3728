package solana

import (
	"errors"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// LoadPrivateKeyFromEnv reads the signing key from GRAVBOT_PRIVATE_KEY_BASE58,
// loading a .env file first on a best-effort basis.
func LoadPrivateKeyFromEnv() (solana.PrivateKey, error) {
	_ = godotenv.Load()
	b58 := os.Getenv("GRAVBOT_PRIVATE_KEY_BASE58")
	if b58 == "" {
		return nil, errors.New("GRAVBOT_PRIVATE_KEY_BASE58 not set")
	}
	return solana.PrivateKeyFromBase58(b58)
}
