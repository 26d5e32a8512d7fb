package database

import (
	"database/sql"
	"time"
)

// Ad statuses
const (
	AdActive   = "active"
	AdArchived = "archived"
)

// Ad reminder levels
const (
	NotifyNone    = ""
	NotifySent24h = "sent_24h"
	NotifySent12h = "sent_12h"
	NotifyRenewed = "renewed"
)

// TrackedAd is an AutoRIA listing watched for expiry
type TrackedAd struct {
	AutoID       int64     `json:"autoId"`
	VIN          string    `json:"vin"`
	Model        string    `json:"model"`
	Link         string    `json:"link"`
	ManagerID    int64     `json:"managerId"`
	ExpireAt     time.Time `json:"expireAt"`
	Status       string    `json:"status"`
	NotifyStatus string    `json:"notifyStatus"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const adColumns = `auto_id, vin, model, link, manager_id, expire_at, status, notify_status, created_at, updated_at`

// UpsertAd inserts an ad or replaces the tracked fields of an existing one
func (db *DB) UpsertAd(ad *TrackedAd) error {
	if ad.Status == "" {
		ad.Status = AdActive
	}
	_, err := db.Exec(`
		INSERT INTO tracked_ads (auto_id, vin, model, link, manager_id, expire_at, status, notify_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(auto_id) DO UPDATE SET
			vin = excluded.vin,
			model = excluded.model,
			link = excluded.link,
			manager_id = excluded.manager_id,
			expire_at = excluded.expire_at,
			status = excluded.status,
			notify_status = excluded.notify_status,
			updated_at = CURRENT_TIMESTAMP
	`, ad.AutoID, ad.VIN, ad.Model, ad.Link, ad.ManagerID, ad.ExpireAt.UTC(), ad.Status, ad.NotifyStatus)
	return err
}

// UpdateAd persists the status fields of an ad
func (db *DB) UpdateAd(ad *TrackedAd) error {
	_, err := db.Exec(`
		UPDATE tracked_ads
		SET expire_at = ?, status = ?, notify_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE auto_id = ?
	`, ad.ExpireAt.UTC(), ad.Status, ad.NotifyStatus, ad.AutoID)
	return err
}

// GetAd returns a tracked ad by AutoRIA id
func (db *DB) GetAd(autoID int64) (*TrackedAd, error) {
	row := db.QueryRow(`SELECT `+adColumns+` FROM tracked_ads WHERE auto_id = ?`, autoID)
	ad, err := scanAd(row)
	if err == sql.ErrNoRows {
		return nil, nil // Ad not tracked
	}
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// GetActiveAds returns active ads ordered by expiry
func (db *DB) GetActiveAds() ([]TrackedAd, error) {
	rows, err := db.Query(`
		SELECT `+adColumns+`
		FROM tracked_ads
		WHERE status = ?
		ORDER BY expire_at
	`, AdActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []TrackedAd
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, *ad)
	}
	return ads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAd(s scanner) (*TrackedAd, error) {
	var ad TrackedAd
	err := s.Scan(&ad.AutoID, &ad.VIN, &ad.Model, &ad.Link, &ad.ManagerID,
		&ad.ExpireAt, &ad.Status, &ad.NotifyStatus, &ad.CreatedAt, &ad.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}
