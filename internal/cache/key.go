package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key derives a deterministic cache key from an operation name and its
// parameters. encoding/json marshals map keys in sorted order, so two
// parameter maps with the same contents produce the same key regardless of
// insertion order.
func Key(operation string, params map[string]any) string {
	canonical, err := json.Marshal(params)
	if err != nil {
		// Parameters are expected to be JSON-serializable per the cache
		// contract; fall back to the raw fmt rendering rather than failing
		// a lookup.
		canonical = []byte(fmt.Sprintf("%v", params))
	}

	digest := xxhash.New()
	_, _ = digest.WriteString(operation)
	_, _ = digest.WriteString(":")
	_, _ = digest.Write(canonical)

	return fmt.Sprintf("%s:%016x", operation, digest.Sum64())
}
