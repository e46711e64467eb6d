package models

// TokenMetadata is the human-readable description of a mint.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	URI      string `json:"uri,omitempty"`
	ImageURI string `json:"image,omitempty"`
}

// TokenSummary is one entry of an owner's token listing.
type TokenSummary struct {
	Mint        string `json:"mint"`
	Account     string `json:"account"`
	Amount      uint64 `json:"amount"`
	Decimals    uint8  `json:"decimals"`
	UIAmount    string `json:"uiAmount"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	ImageURI    string `json:"image,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

const UnknownSymbol = "UNKNOWN"
