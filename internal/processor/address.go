package processor

import (
	"strings"

	"github.com/woozymasta/geo3d/internal/feature"
)

// AddressKeys are the attributes composing an address, in output order.
var AddressKeys = []string{
	"name",
	"addr:housename",
	"addr:flats",
	"addr:housenumber",
	"addr:street",
	"addr:suburb",
	"addr:postcode",
	"addr:city",
	"addr:province",
}

// Address joins the trimmed present address parts with single spaces.
// Blank parts are kept, so they show up as repeated spaces.
// It returns nil when no part is present.
func Address(attrs feature.Attributes) *string {
	var parts []string
	for _, k := range AddressKeys {
		if attrs.Present(k) {
			parts = append(parts, strings.TrimSpace(attrs.String(k)))
		}
	}
	if len(parts) == 0 {
		return nil
	}

	s := strings.Join(parts, " ")
	return &s
}
