package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVisitKey parses the "site:visit" form produced by VisitKey.String.
func ParseVisitKey(s string) (VisitKey, error) {
	site, visit, ok := strings.Cut(s, ":")
	if !ok {
		return VisitKey{}, fmt.Errorf("visit %q: expected site:visit", s)
	}
	siteID, err := strconv.ParseInt(strings.TrimSpace(site), 10, 64)
	if err != nil || siteID < 1 {
		return VisitKey{}, fmt.Errorf("visit %q: invalid site id", s)
	}
	visitID, err := strconv.ParseInt(strings.TrimSpace(visit), 10, 64)
	if err != nil || visitID < 1 {
		return VisitKey{}, fmt.Errorf("visit %q: invalid visit id", s)
	}
	return VisitKey{SiteID: siteID, VisitID: visitID}, nil
}

// ParseVisitKeys parses every value with ParseVisitKey. Duplicates are kept.
func ParseVisitKeys(values []string) ([]VisitKey, error) {
	keys := make([]VisitKey, 0, len(values))
	for _, v := range values {
		k, err := ParseVisitKey(v)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
