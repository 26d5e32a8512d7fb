package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calculation is a staff calculation saved for a client
type Calculation struct {
	ID            int64           `json:"id"`
	Ref           string          `json:"ref"`
	StaffID       int64           `json:"staffId"`
	VIN           string          `json:"vin"`
	Model         string          `json:"model"`
	ClientContact string          `json:"clientContact"`
	Auction       string          `json:"auction"`
	Location      string          `json:"location"`
	Bid           float64         `json:"bid"`
	TotalCost     float64         `json:"totalCost"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SaveCalculation stores c and fills in its ID and Ref, and CreatedAt when unset.
// The client contact is encrypted when an encryption key is set.
func (db *DB) SaveCalculation(c *Calculation) error {
	if c.Ref == "" {
		c.Ref = uuid.NewString()
	}
	if len(c.Payload) == 0 {
		c.Payload = json.RawMessage("{}")
	}

	contact := []byte(c.ClientContact)
	encrypted := false
	if db.contactKey != nil && c.ClientContact != "" {
		var err error
		contact, err = EncryptSecret(c.ClientContact, db.contactKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt client contact: %w", err)
		}
		encrypted = true
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	result, err := db.Exec(`
		INSERT INTO calculations (ref, staff_id, vin, model, client_contact, contact_encrypted,
		                          auction, location, bid, total_cost, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Ref, c.StaffID, c.VIN, c.Model, contact, encrypted,
		c.Auction, c.Location, c.Bid, c.TotalCost, string(c.Payload), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save calculation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetCalculations returns the most recent saved calculations, newest first
func (db *DB) GetCalculations(limit int) ([]Calculation, error) {
	rows, err := db.Query(`
		SELECT id, ref, staff_id, vin, model, client_contact, contact_encrypted,
		       auction, location, bid, total_cost, payload, created_at
		FROM calculations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calcs []Calculation
	for rows.Next() {
		var c Calculation
		var contact []byte
		var encrypted bool
		var payload string
		err := rows.Scan(&c.ID, &c.Ref, &c.StaffID, &c.VIN, &c.Model, &contact, &encrypted,
			&c.Auction, &c.Location, &c.Bid, &c.TotalCost, &payload, &c.CreatedAt)
		if err != nil {
			return nil, err
		}

		switch {
		case !encrypted:
			c.ClientContact = string(contact)
		case db.contactKey != nil:
			if c.ClientContact, err = DecryptSecret(contact, db.contactKey); err != nil {
				return nil, fmt.Errorf("calculation %s: %w", c.Ref, err)
			}
		default:
			c.ClientContact = "[encrypted]"
		}
		c.Payload = json.RawMessage(payload)
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}
