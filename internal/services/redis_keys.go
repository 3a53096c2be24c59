package services

const (
	// Distinct prefixes so no email can name another email's key.
	KeyAccount             = "account:%s"
	KeyAccountTransactions = "transactions:%s"

	// Only the newest entries of an account's transaction list are kept.
	MaxStoredTransactions = 100
)
