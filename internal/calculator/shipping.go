package calculator

// ShippingToPort returns the inland shipping cost from an auction location
// to its port. Staff see the carrier's upper rate; clients get a markup with
// a floor. The second return is false when the key is not in the table.
func ShippingToPort(t *Table, key string, pro bool) (float64, bool) {
	entry, ok := t.Lookup(key)
	if !ok {
		return 0, false
	}
	upper := float64(entry.Rate.Upper)
	if pro {
		return upper, true
	}
	return max(upper+clientShippingMarkup, clientShippingFloor), true
}

// OceanFreight returns the container cost from a US port to Europe
func OceanFreight(port string) float64 {
	if port == PremiumPort {
		return premiumOceanFreight
	}
	return standardOceanFreight
}
