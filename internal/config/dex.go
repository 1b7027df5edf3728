// Package config also contains DEX-specific configuration surfaces.
package config

// Dex defines network endpoints and defaults for decentralized quoting.
type Dex struct {
	Network     string `yaml:"network"` // mainnet-beta quotes live; anything else simulates
	RpcURL      string `yaml:"rpc_url"`
	Commitment  string `yaml:"commitment"`   // processed|confirmed|finalized
	JupiterBase string `yaml:"jupiter_base"` // https://quote-api.jup.ag
}

// Market maps a trading pair to its on-chain mints and decimals.
type Market struct {
	BaseMint      string `yaml:"base_mint"`
	QuoteMint     string `yaml:"quote_mint"`
	BaseDecimals  int    `yaml:"base_decimals"`
	QuoteDecimals int    `yaml:"quote_decimals"`
}
