package form

import (
	"strconv"

	"fintrack/internal/core"
)

// TransactionInput is a transaction as typed into a form.
type TransactionInput struct {
	Date        string
	Description string
	Location    string
	Amount      string
	Type        string // defaults to expense
	Category    string
	Recurring   string
}

// Parse validates the input. The returned transaction has no id.
func (in TransactionInput) Parse() (core.Transaction, error) {
	m := errs{}
	t := core.Transaction{
		Date:        requireDate(m, "date", in.Date, "Date is required"),
		Description: requireText(m, "description", in.Description, "Description is required"),
		Location:    requireText(m, "location", in.Location, "Location is required"),
		Amount:      requireAmount(m, "amount", in.Amount, "Amount must be greater than 0"),
		Type:        oneOf(m, "type", in.Type, core.TransactionTypes(), core.Expense),
		IsRecurring: optionalBool(m, "recurring", in.Recurring),
	}
	t.Category = sanitize(in.Category)
	switch {
	case t.Category == "":
		m.add("category", "Category is required")
	case t.Type != "" && !core.ValidCategory(t.Type, t.Category):
		m.add("category", "Category is not valid for "+string(t.Type))
	}
	if err := m.err(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Over fills the fields left empty in the input from base, so an edit form
// only needs the fields that change.
func (in TransactionInput) Over(base core.Transaction) TransactionInput {
	fill(&in.Date, base.Date.String())
	fill(&in.Description, base.Description)
	fill(&in.Location, base.Location)
	fill(&in.Amount, base.Amount.String())
	fill(&in.Type, string(base.Type))
	fill(&in.Category, base.Category)
	fill(&in.Recurring, strconv.FormatBool(base.IsRecurring))
	return in
}

// AssetInput is an asset as typed into a form.
type AssetInput struct {
	Name         string
	Type         string // defaults to cash
	Value        string
	AcquiredDate string
}

func (in AssetInput) Parse() (core.Asset, error) {
	m := errs{}
	a := core.Asset{
		Name:         requireText(m, "name", in.Name, "Asset name is required"),
		Type:         oneOf(m, "type", in.Type, core.AssetTypes(), core.Cash),
		Value:        requireAmount(m, "value", in.Value, "Value must be greater than 0"),
		AcquiredDate: requireDate(m, "acquired_date", in.AcquiredDate, "Acquisition date is required"),
	}
	if err := m.err(); err != nil {
		return core.Asset{}, err
	}
	return a, nil
}

func (in AssetInput) Over(base core.Asset) AssetInput {
	fill(&in.Name, base.Name)
	fill(&in.Type, string(base.Type))
	fill(&in.Value, base.Value.String())
	fill(&in.AcquiredDate, base.AcquiredDate.String())
	return in
}

// LiabilityInput is a liability as typed into a form.
type LiabilityInput struct {
	Description string
	Type        string // defaults to credit_card
	Amount      string
	DueDate     string
}

func (in LiabilityInput) Parse() (core.Liability, error) {
	m := errs{}
	l := core.Liability{
		Description: requireText(m, "description", in.Description, "Description is required"),
		Type:        oneOf(m, "type", in.Type, core.LiabilityTypes(), core.CreditCard),
		Amount:      requireAmount(m, "amount", in.Amount, "Amount must be greater than 0"),
		DueDate:     requireDate(m, "due_date", in.DueDate, "Due date is required"),
	}
	if err := m.err(); err != nil {
		return core.Liability{}, err
	}
	return l, nil
}

func (in LiabilityInput) Over(base core.Liability) LiabilityInput {
	fill(&in.Description, base.Description)
	fill(&in.Type, string(base.Type))
	fill(&in.Amount, base.Amount.String())
	fill(&in.DueDate, base.DueDate.String())
	return in
}

func fill(dst *string, v string) {
	if sanitize(*dst) == "" {
		*dst = v
	}
}
