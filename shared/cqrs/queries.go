package cqrs

// ---------- Catalog queries ----------

// ListFavoriteServicesQuery lists the services a customer marked as favorite.
type ListFavoriteServicesQuery struct {
	CustomerID string
}

// ---------- Account queries ----------

// GetBalanceQuery fetches the current balance of an account.
type GetBalanceQuery struct {
	AccountID string
}

// ---------- Bill queries ----------

// GetLatestBillQuery fetches the latest bill a customer owes for a service.
type GetLatestBillQuery struct {
	CustomerID string
	ServiceID  string
}

// ---------- Receipt queries ----------

// GetReceiptQuery fetches a single issued receipt.
type GetReceiptQuery struct {
	ReceiptID string
}
