package core

// Category is a selectable transaction category.
type Category struct {
	ID   string
	Name string
}

var categories = map[TransactionType][]Category{
	Income: {
		{ID: "salary", Name: "Salary"},
		{ID: "bonus", Name: "Bonus"},
		{ID: "rental", Name: "Rental Income"},
		{ID: "freelance", Name: "Freelance"},
		{ID: "investment", Name: "Investment"},
		{ID: "other_income", Name: "Other Income"},
	},
	Expense: {
		{ID: "rent", Name: "Rent/Mortgage"},
		{ID: "food", Name: "Food & Groceries"},
		{ID: "utilities", Name: "Utilities"},
		{ID: "transportation", Name: "Transportation"},
		{ID: "healthcare", Name: "Healthcare"},
		{ID: "entertainment", Name: "Entertainment"},
		{ID: "travel", Name: "Travel"},
		{ID: "shopping", Name: "Shopping"},
		{ID: "education", Name: "Education"},
		{ID: "other_expense", Name: "Other Expense"},
	},
}

// Categories returns the categories available for t, in display order.
func Categories(t TransactionType) []Category {
	return append([]Category(nil), categories[t]...)
}

// ValidCategory reports whether id is a category of type t.
func ValidCategory(t TransactionType, id string) bool {
	for _, c := range categories[t] {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CategoryName resolves a category id to its display name.
// Unknown types or ids fall back to the raw id, or "Unknown" when id is empty.
func CategoryName(t TransactionType, id string) string {
	for _, c := range categories[t] {
		if c.ID == id {
			return c.Name
		}
	}
	if id == "" {
		return "Unknown"
	}
	return id
}
