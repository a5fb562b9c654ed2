package abcp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"tender/internal"
)

// LoadDirectory fetches the distributor id -> display name table once per run.
// Any failure yields an empty directory and a warning; bad entries are skipped.
func (c *Client) LoadDirectory(ctx context.Context) internal.Directory {
	items, err := c.fetchList(ctx, c.cfg.DistributorPath, url.Values{})
	if err != nil {
		c.warn(fmt.Sprintf("distributor directory unavailable, supplier names will be empty: %v", err))
		return internal.Directory{}
	}

	dir := make(internal.Directory, len(items))
	skipped := 0
	for _, raw := range items {
		entry, ok := raw.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		id, ok := internal.ValueInt(entry["id"])
		if !ok {
			skipped++
			continue
		}
		name := internal.ValueString(entry["publicName"])
		if name == "" {
			name = internal.ValueString(entry["name"])
		}
		if name == "" {
			name = strconv.Itoa(id)
		}
		dir[id] = name
	}
	if skipped > 0 {
		c.warn(fmt.Sprintf("distributor directory: skipped %d malformed entries", skipped))
	}
	return dir
}
