package database

import (
	"fmt"

	"github.com/itransmotors/carbot/internal/calculator"
)

// ReplaceTariffs swaps the stored tariff snapshot for entries in one transaction
func (db *DB) ReplaceTariffs(entries []calculator.TariffEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tariff_entries`); err != nil {
		return fmt.Errorf("failed to clear tariffs: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tariff_entries (location_key, auction, location, port, rate_lower, rate_upper)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Key(), string(e.Auction), e.Location, e.Port, e.Rate.Lower, e.Rate.Upper); err != nil {
			return fmt.Errorf("failed to insert tariff %s: %w", e.Key(), err)
		}
	}

	return tx.Commit()
}

// GetTariffs returns the stored tariff snapshot ordered by key
func (db *DB) GetTariffs() ([]calculator.TariffEntry, error) {
	rows, err := db.Query(`
		SELECT auction, location, port, rate_lower, rate_upper
		FROM tariff_entries
		ORDER BY location_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []calculator.TariffEntry
	for rows.Next() {
		var e calculator.TariffEntry
		var auction string
		if err := rows.Scan(&auction, &e.Location, &e.Port, &e.Rate.Lower, &e.Rate.Upper); err != nil {
			return nil, err
		}
		e.Auction = calculator.Auction(auction)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
