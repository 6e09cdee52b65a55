package votehub

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Catalog lists what the provider can be asked about. It grounds the query
// interpreter so it picks identifiers the provider knows.
type Catalog struct {
	Subjects  []string `json:"subjects"`
	PollTypes []string `json:"poll_types"`
	Pollsters []string `json:"pollsters"`
}

// HasPollType reports whether pt is a known poll type. An empty catalog
// knows nothing and accepts everything.
func (c Catalog) HasPollType(pt string) bool {
	_, ok := c.PollType(pt)
	return ok
}

// PollType returns the catalog's spelling of pt, matched without regard to
// case. An empty catalog accepts pt as given.
func (c Catalog) PollType(pt string) (string, bool) {
	return canonical(c.PollTypes, pt)
}

// Subject is PollType for subjects.
func (c Catalog) Subject(s string) (string, bool) {
	return canonical(c.Subjects, s)
}

func canonical(known []string, v string) (string, bool) {
	if len(known) == 0 {
		return v, true
	}
	for _, k := range known {
		if strings.EqualFold(k, v) {
			return k, true
		}
	}
	return "", false
}

const catalogKey = "catalog"

// Catalog returns the provider catalog, served from cache while fresh. It
// makes one attempt per listing; a failure is remembered for
// CatalogRetryAfter and returned without contacting the provider.
func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	if cat, ok := c.catalog.Get(catalogKey); ok {
		return cat, nil
	}
	if err, ok := c.catalogErr.Get(catalogKey); ok {
		return Catalog{}, err
	}
	var cat Catalog
	for _, part := range []struct {
		path string
		dst  *[]string
	}{
		{"/subjects", &cat.Subjects},
		{"/poll-types", &cat.PollTypes},
		{"/pollsters", &cat.Pollsters},
	} {
		var raw json.RawMessage
		found, err := c.get(ctx, part.path, nil, &raw, 1)
		if err != nil {
			if ctx.Err() == nil {
				c.catalogErr.Add(catalogKey, err)
			}
			return Catalog{}, err
		}
		if found {
			*part.dst = names(raw)
		}
	}
	c.catalog.Add(catalogKey, cat)
	return cat, nil
}

// nameKeys are the fields checked, in order, when a listing holds objects.
var nameKeys = []string{"name", "subject", "poll_type", "slug", "id"}

// names extracts identifiers from a listing that is either an array of
// strings or an array of objects carrying one of nameKeys.
func names(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err != nil {
			var obj map[string]any
			if err := json.Unmarshal(it, &obj); err != nil {
				continue
			}
			for _, k := range nameKeys {
				if v, ok := obj[k].(string); ok && v != "" {
					s = v
					break
				}
			}
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
