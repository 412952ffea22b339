package models

// User is a marketplace account. A user may act as a buyer, and as a
// seller once it owns products. WalletAddress is the optional on-chain
// address purchases are recorded against.
type User struct {
	ID            int64
	Email         string
	PassHash      []byte
	WalletAddress string
}
