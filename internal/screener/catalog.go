package screener

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownCategory is returned when a scan category or sector has no
// symbol list.
var ErrUnknownCategory = errors.New("unknown category")

// vn30 are the index constituents used for the default scan universe.
var vn30 = []string{
	"ACB", "BID", "BVH", "CTG", "FPT", "GAS", "GVR", "HDB",
	"HPG", "MBB", "MSN", "MWG", "PLX", "POW", "SAB", "SSI",
	"STB", "TCB", "TPB", "VCB", "VHM", "VIB", "VIC", "VJC",
	"VNM", "VPB", "VRE", "VSH", "VTI", "VTO",
}

// popular are commonly requested symbols outside any fixed index.
var popular = []string{"FPT", "VIC", "VHM", "HPG", "VCB", "BID", "MWG", "VNM"}

// sectors maps a sector tag to its constituent symbols.
var sectors = map[string][]string{
	"banking":     {"ACB", "BID", "CTG", "HDB", "MBB", "STB", "TCB", "TPB", "VCB", "VPB", "VIB"},
	"real_estate": {"VHM", "VIC", "VRE"},
	"technology":  {"FPT"},
	"steel":       {"HPG"},
	"retail":      {"MWG"},
	"oil_gas":     {"GAS", "PLX"},
	"food":        {"VNM", "MSN", "SAB"},
}

// Catalog resolves scan categories and sectors to symbol lists. It is
// immutable after construction and safe for concurrent use.
type Catalog struct{}

// NewCatalog creates a Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Resolve returns the symbol list for a category: "vn30", "popular", "all",
// or any sector tag.
func (c *Catalog) Resolve(category string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "vn30":
		return append([]string(nil), vn30...), nil
	case "popular":
		return append([]string(nil), popular...), nil
	case "all":
		return c.All(), nil
	default:
		return c.Sector(category)
	}
}

// Sector returns the symbol list for a sector tag.
func (c *Catalog) Sector(sector string) ([]string, error) {
	symbols, ok := sectors[strings.ToLower(strings.TrimSpace(sector))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, sector)
	}
	return append([]string(nil), symbols...), nil
}

// Sectors lists the known sector tags, sorted.
func (c *Catalog) Sectors() []string {
	tags := make([]string, 0, len(sectors))
	for tag := range sectors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// All returns the deduplicated union of every known symbol, sorted.
func (c *Catalog) All() []string {
	seen := make(map[string]bool)
	var all []string

	add := func(symbols []string) {
		for _, s := range symbols {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	add(vn30)
	add(popular)
	for _, symbols := range sectors {
		add(symbols)
	}

	sort.Strings(all)
	return all
}

// ParseSymbolList splits a comma-separated symbol list, trimming and
// uppercasing each entry and dropping empties.
func ParseSymbolList(raw string) []string {
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
