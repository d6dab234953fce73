package remote

import (
	"net/url"

	"fintrack/internal/core"
)

// Endpoint paths of the finance service. Path segments are escaped.

func UserPath(userID string) string {
	return "/users/" + url.PathEscape(userID)
}

func DashboardPath(userID string) string {
	return "/api/dashboard/" + url.PathEscape(userID)
}

func TransactionsPath(userID string) string {
	return "/api/transactions/user/" + url.PathEscape(userID)
}

func CreateTransactionPath() string { return "/api/transactions" }

func TransactionPath(id core.ID) string {
	return "/api/transactions/" + url.PathEscape(id.String())
}

func AssetsPath(userID string) string {
	return "/api/assets/user/" + url.PathEscape(userID)
}

func CreateAssetPath() string { return "/api/assets/" }

func UpdateAssetPath(userID string, id core.ID) string {
	return "/api/assets/" + url.PathEscape(userID) + "/" + url.PathEscape(id.String())
}

func DeleteAssetPath(id core.ID) string {
	return "/api/assets/" + url.PathEscape(id.String())
}

func LiabilitiesPath(userID string) string {
	return "/api/liabilities/user/" + url.PathEscape(userID)
}

func CreateLiabilityPath() string { return "/api/liabilities/" }

func UpdateLiabilityPath(userID string, id core.ID) string {
	return "/api/liabilities/" + url.PathEscape(userID) + "/" + url.PathEscape(id.String())
}

func DeleteLiabilityPath(id core.ID) string {
	return "/api/liabilities/" + url.PathEscape(id.String())
}
