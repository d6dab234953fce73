package store

import (
	"fintrack/internal/core"
	"fintrack/internal/remote"
)

// Kind describes one entity collection of the finance service: where it
// lives and how its records are identified and sent.
type Kind[T any] struct {
	Name       string
	ListPath   func(userID string) string
	CreatePath func(userID string) string
	UpdatePath func(userID string, id core.ID) string
	DeletePath func(userID string, id core.ID) string

	ID     func(T) core.ID
	WithID func(T, core.ID) T
	// Payload builds the request body. Create passes the user id; update
	// passes "" because the record is addressed by id.
	Payload func(rec T, userID string) any
}

const (
	KindTransactions = "transactions"
	KindAssets       = "assets"
	KindLiabilities  = "liabilities"
)

var Transactions = Kind[core.Transaction]{
	Name:       KindTransactions,
	ListPath:   remote.TransactionsPath,
	CreatePath: func(string) string { return remote.CreateTransactionPath() },
	UpdatePath: func(_ string, id core.ID) string { return remote.TransactionPath(id) },
	DeletePath: func(_ string, id core.ID) string { return remote.TransactionPath(id) },
	ID:         func(t core.Transaction) core.ID { return t.ID },
	WithID:     func(t core.Transaction, id core.ID) core.Transaction { t.ID = id; return t },
	Payload:    core.Transaction.Payload,
}

var Assets = Kind[core.Asset]{
	Name:       KindAssets,
	ListPath:   remote.AssetsPath,
	CreatePath: func(string) string { return remote.CreateAssetPath() },
	UpdatePath: remote.UpdateAssetPath,
	DeletePath: func(_ string, id core.ID) string { return remote.DeleteAssetPath(id) },
	ID:         func(a core.Asset) core.ID { return a.ID },
	WithID:     func(a core.Asset, id core.ID) core.Asset { a.ID = id; return a },
	Payload:    core.Asset.Payload,
}

var Liabilities = Kind[core.Liability]{
	Name:       KindLiabilities,
	ListPath:   remote.LiabilitiesPath,
	CreatePath: func(string) string { return remote.CreateLiabilityPath() },
	UpdatePath: remote.UpdateLiabilityPath,
	DeletePath: func(_ string, id core.ID) string { return remote.DeleteLiabilityPath(id) },
	ID:         func(l core.Liability) core.ID { return l.ID },
	WithID:     func(l core.Liability, id core.ID) core.Liability { l.ID = id; return l },
	Payload:    core.Liability.Payload,
}
