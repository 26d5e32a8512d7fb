package calculator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Auction identifies an auction house
type Auction string

const (
	Copart Auction = "copart"
	IAAI   Auction = "iaai"
)

// Auctions returns the supported auction houses in display order
func Auctions() []Auction {
	return []Auction{Copart, IAAI}
}

// DisplayName is the house name used in tariff keys and messages
func (a Auction) DisplayName() string {
	switch a {
	case Copart:
		return "Copart"
	case IAAI:
		return "IAAI"
	}
	return string(a)
}

func (a Auction) Valid() bool {
	return a == Copart || a == IAAI
}

// ParseAuction accepts the internal id or the display name, case-insensitively
func ParseAuction(s string) (Auction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "copart":
		return Copart, nil
	case "iaai":
		return IAAI, nil
	}
	return "", fmt.Errorf("unknown auction %q", s)
}

// RateRange is an inland shipping rate in whole USD
type RateRange struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// TariffEntry is one row of an auction's inland shipping sheet
type TariffEntry struct {
	Auction  Auction   `json:"auction"`
	Location string    `json:"location"`
	Port     string    `json:"port"`
	Rate     RateRange `json:"rate"`
}

// Key returns the lookup key of the entry
func (e TariffEntry) Key() string {
	return LocationKey(e.Auction, e.Location)
}

// LocationKey builds the "<House>: <location>" key used across the bot
func LocationKey(a Auction, location string) string {
	return a.DisplayName() + ": " + location
}

// Table is an immutable set of tariff entries keyed by location key.
// A nil *Table behaves as an empty table.
type Table struct {
	entries   map[string]TariffEntry
	locations map[Auction][]string
}

// NewTable builds a table from entries. Later duplicates overwrite earlier ones.
func NewTable(entries []TariffEntry) *Table {
	t := &Table{
		entries:   make(map[string]TariffEntry, len(entries)),
		locations: make(map[Auction][]string),
	}
	for _, e := range entries {
		t.entries[e.Key()] = e
	}
	for key, e := range t.entries {
		t.locations[e.Auction] = append(t.locations[e.Auction], key)
	}
	for a := range t.locations {
		sort.Strings(t.locations[a])
	}
	return t
}

// LoadTariffs parses both houses' raw sheet rows into a new table
func LoadTariffs(copartRows, iaaiRows [][]string) *Table {
	entries := ParseRows(Copart, copartRows)
	entries = append(entries, ParseRows(IAAI, iaaiRows)...)
	return NewTable(entries)
}

// ParseRows converts raw sheet rows into entries. The first row is a header.
// Rows that are too short, have empty fields or an unparseable rate are skipped.
func ParseRows(a Auction, rows [][]string) []TariffEntry {
	if len(rows) < 2 {
		return nil
	}
	var entries []TariffEntry
	for _, row := range rows[1:] {
		if len(row) < 5 {
			continue
		}
		location := strings.TrimSpace(row[1])
		port := strings.TrimSpace(row[2])
		rateText := strings.TrimSpace(row[4])
		if location == "" || port == "" || rateText == "" {
			continue
		}
		rate, ok := ParseRateExpression(rateText)
		if !ok {
			continue
		}
		entries = append(entries, TariffEntry{
			Auction:  a,
			Location: location,
			Port:     port,
			Rate:     rate,
		})
	}
	return entries
}

// ParseRateExpression parses "$1,200-1,500" style rates. Everything except
// digits and '-' is dropped first; a single number yields an equal range.
func ParseRateExpression(s string) (RateRange, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return RateRange{}, false
	}

	if !strings.Contains(cleaned, "-") {
		v, err := strconv.Atoi(cleaned)
		if err != nil {
			return RateRange{}, false
		}
		return RateRange{Lower: v, Upper: v}, true
	}

	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RateRange{}, false
	}
	lower, err := strconv.Atoi(parts[0])
	if err != nil {
		return RateRange{}, false
	}
	upper, err := strconv.Atoi(parts[1])
	if err != nil {
		return RateRange{}, false
	}
	if lower > upper {
		return RateRange{}, false
	}
	return RateRange{Lower: lower, Upper: upper}, true
}

// Lookup returns the entry for a location key
func (t *Table) Lookup(key string) (TariffEntry, bool) {
	if t == nil {
		return TariffEntry{}, false
	}
	e, ok := t.entries[key]
	return e, ok
}

// Locations returns the sorted location keys of one auction house
func (t *Table) Locations(a Auction) []string {
	if t == nil {
		return nil
	}
	keys := t.locations[a]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Len returns the number of entries
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Count returns the number of entries for one auction house
func (t *Table) Count(a Auction) int {
	if t == nil {
		return 0
	}
	return len(t.locations[a])
}

// Entries returns all entries sorted by key
func (t *Table) Entries() []TariffEntry {
	if t == nil {
		return nil
	}
	entries := make([]TariffEntry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key() < entries[j].Key()
	})
	return entries
}
