package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const dateLayout = "2006-01-02"

// ID is an opaque, server-assigned identifier.
//
// The finance service issues integer ids; they are kept as strings here and
// written back as numbers so the service sees the type it produced. Ids that
// are not in canonical integer form, such as "007", stay strings.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the id has not been assigned yet.
func (id ID) IsZero() bool { return id == "" }

func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id == "":
		return []byte("null"), nil
	case id.numeric():
		return []byte(id), nil
	default:
		return json.Marshal(string(id))
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts YYYY-MM-DD, RFC 3339 timestamps, "" and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// flexBool decodes true/false, "true"/"false" and 1/0.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(s) {
	case "", "null", "false", "0":
		*b = false
	case "true", "1":
		*b = true
	default:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*b = flexBool(v)
	}
	return nil
}

type transactionWire struct {
	ID          ID              `json:"id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	Date        Date            `json:"transaction_date"`
	Description string          `json:"description"`
	Amount      Amount          `json:"amount"`
	Type        TransactionType `json:"transaction_type"`
	Category    string          `json:"category_type"`
	Location    string          `json:"location"`
	IsRecurring flexBool        `json:"is_recurring"`
}

func (t Transaction) wire(userID string) transactionWire {
	return transactionWire{
		ID:          t.ID,
		UserID:      userID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		Location:    t.Location,
		IsRecurring: flexBool(t.IsRecurring),
	}
}

// Payload is the request body for creating or updating t on behalf of userID.
func (t Transaction) Payload(userID string) any { return t.wire(userID) }

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.wire(""))
}

// UnmarshalJSON reads the service shape. Older payloads carry the type and
// category under "type" and "category"; when present those win.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w struct {
		transactionWire
		LegacyType     TransactionType `json:"type"`
		LegacyCategory string          `json:"category"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Transaction{
		ID:          w.ID,
		Date:        w.Date,
		Description: w.Description,
		Amount:      w.Amount,
		Type:        w.Type,
		Category:    w.Category,
		Location:    w.Location,
		IsRecurring: bool(w.IsRecurring),
	}
	if w.LegacyType != "" {
		t.Type = w.LegacyType
	}
	if w.LegacyCategory != "" {
		t.Category = w.LegacyCategory
	}
	return nil
}

type assetWire struct {
	ID           ID        `json:"id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Name         string    `json:"asset_name"`
	Type         AssetType `json:"asset_type"`
	Value        Amount    `json:"value"`
	AcquiredDate Date      `json:"acquired_date"`
}

func (a Asset) wire(userID string) assetWire {
	return assetWire{ID: a.ID, UserID: userID, Name: a.Name, Type: a.Type, Value: a.Value, AcquiredDate: a.AcquiredDate}
}

// Payload is the request body for creating or updating a on behalf of userID.
func (a Asset) Payload(userID string) any { return a.wire(userID) }

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.wire(""))
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var w assetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Asset{ID: w.ID, Name: w.Name, Type: w.Type, Value: w.Value, AcquiredDate: w.AcquiredDate}
	return nil
}

type liabilityWire struct {
	ID          ID            `json:"id,omitempty"`
	UserID      string        `json:"user_id,omitempty"`
	Description string        `json:"description"`
	Type        LiabilityType `json:"liability_type"`
	Amount      Amount        `json:"amount"`
	DueDate     Date          `json:"due_date"`
}

func (l Liability) wire(userID string) liabilityWire {
	return liabilityWire{ID: l.ID, UserID: userID, Description: l.Description, Type: l.Type, Amount: l.Amount, DueDate: l.DueDate}
}

// Payload is the request body for creating or updating l on behalf of userID.
func (l Liability) Payload(userID string) any { return l.wire(userID) }

func (l Liability) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.wire(""))
}

func (l *Liability) UnmarshalJSON(data []byte) error {
	var w liabilityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = Liability{ID: w.ID, Description: w.Description, Type: w.Type, Amount: w.Amount, DueDate: w.DueDate}
	return nil
}
