package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Cash        AssetType = "cash"
	RealEstate  AssetType = "real_estate"
	Vehicles    AssetType = "vehicles"
	Investments AssetType = "investments"
	OtherAsset  AssetType = "other"
)

const (
	CreditCard     LiabilityType = "credit_card"
	Loan           LiabilityType = "loan"
	Mortgage       LiabilityType = "mortgage"
	OtherLiability LiabilityType = "other"
)

type (
	TransactionType string
	AssetType       string
	LiabilityType   string

	Date struct {
		time.Time
	}

	// Transaction is a dated income or expense movement.
	Transaction struct {
		ID          ID
		Date        Date
		Description string
		Amount      Amount
		Type        TransactionType
		Category    string // category id, valid for Type
		Location    string
		IsRecurring bool
	}

	// Asset is something the user owns, valued at Value.
	Asset struct {
		ID           ID
		Name         string
		Type         AssetType
		Value        Amount
		AcquiredDate Date
	}

	// Liability is something the user owes.
	Liability struct {
		ID          ID
		Description string
		Type        LiabilityType
		Amount      Amount
		DueDate     Date
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyLocation      = errors.New("empty location")
	ErrInvalidType        = errors.New("invalid type")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

const maxDescriptionLength = 200

var (
	transactionTypes = []TransactionType{Income, Expense}
	assetTypes       = []AssetType{Cash, RealEstate, Vehicles, Investments, OtherAsset}
	liabilityTypes   = []LiabilityType{CreditCard, Loan, Mortgage, OtherLiability}
)

// TransactionTypes lists the known transaction types in display order.
func TransactionTypes() []TransactionType { return append([]TransactionType(nil), transactionTypes...) }

// AssetTypes lists the known asset types in display order.
func AssetTypes() []AssetType { return append([]AssetType(nil), assetTypes...) }

// LiabilityTypes lists the known liability types in display order.
func LiabilityTypes() []LiabilityType { return append([]LiabilityType(nil), liabilityTypes...) }

func (t TransactionType) Valid() bool {
	for _, v := range transactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t AssetType) Valid() bool {
	for _, v := range assetTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t LiabilityType) Valid() bool {
	for _, v := range liabilityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Label returns a human readable name, e.g. "Real Estate".
func (t AssetType) Label() string { return labelize(string(t)) }

// Label returns a human readable name, e.g. "Credit Card".
func (t LiabilityType) Label() string { return labelize(string(t)) }

func labelize(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and full RFC 3339 timestamps, with or without
// a zone, keeping the date part as written.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	if len(s) > len(dateLayout) && !validTimestamp(s) {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func validTimestamp(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	if len(s) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if strings.TrimSpace(t.Location) == "" {
		return ErrEmptyLocation
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !ValidCategory(t.Type, t.Category) {
		return ErrInvalidCategory
	}
	return nil
}

func (a Asset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidType
	}
	if err := a.Value.Validate(); err != nil {
		return err
	}
	return a.AcquiredDate.Validate()
}

func (l Liability) Validate() error {
	if err := validateDescription(l.Description); err != nil {
		return err
	}
	if !l.Type.Valid() {
		return ErrInvalidType
	}
	if err := l.Amount.Validate(); err != nil {
		return err
	}
	return l.DueDate.Validate()
}
