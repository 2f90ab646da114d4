package crawler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// initialDataMarker is the variable the site assigns its page state to,
// as in "window.initialData = {...};". The scan matches the bare name so
// the scoping prefix does not matter.
const initialDataMarker = "initialData"

// extractInitialData locates the embedded page-state object in the document's
// script tags and decodes it. The returned error names what was missing so a
// markup change on the site is diagnosable from the log line alone.
func extractInitialData(html string) (map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, initialDataMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, fmt.Errorf("no script tag contains %s", initialDataMarker)
	}

	fragment, err := jsonObjectAfter(script, initialDataMarker)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(fragment), &data); err != nil {
		return nil, fmt.Errorf("decode %s object: %w", initialDataMarker, err)
	}
	return data, nil
}

// jsonObjectAfter returns the balanced JSON object that follows the first
// occurrence of marker in s.
func jsonObjectAfter(s, marker string) (string, error) {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return "", fmt.Errorf("marker %s not found", marker)
	}
	rest := s[idx+len(marker):]
	open := strings.IndexByte(rest, '{')
	if open < 0 {
		return "", fmt.Errorf("no object literal after %s", marker)
	}
	return balancedObject(rest[open:])
}

// balancedObject scans s, which must start with '{', and returns the prefix
// up to the matching closing brace. Braces inside string literals do not
// count, and backslash escapes inside strings are honored, so values like
// "{not json}" cannot derail the match.
func balancedObject(s string) (string, error) {
	if len(s) == 0 || s[0] != '{' {
		return "", fmt.Errorf("object literal must start with '{'")
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced object literal")
}

// adsPath is where the listing records live inside the page state.
var adsPath = []string{"serp", "ads", "data", "ads"}

// adsFromInitialData walks the page state down to the ad array. Every
// missing or mistyped segment is an error; an empty array is a valid result.
func adsFromInitialData(data map[string]interface{}) ([]RawAd, error) {
	node := interface{}(data)
	for i, key := range adsPath {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s is not an object", strings.Join(adsPath[:i], "."))
		}
		node, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("missing key %s", strings.Join(adsPath[:i+1], "."))
		}
	}

	list, ok := node.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s is not an array", strings.Join(adsPath, "."))
	}

	ads := make([]RawAd, 0, len(list))
	for _, item := range list {
		if raw, ok := item.(RawAd); ok {
			ads = append(ads, raw)
		}
	}
	return ads, nil
}

// metaFromInitialData reads the pagination block next to the ad records.
// It is best effort and never fails: a missing block just yields zeros.
func metaFromInitialData(data map[string]interface{}) SearchMeta {
	var meta SearchMeta
	node := interface{}(data)
	for _, key := range []string{"serp", "ads", "data", "paginationData"} {
		m, ok := node.(map[string]interface{})
		if !ok {
			return meta
		}
		if node, ok = m[key]; !ok {
			return meta
		}
	}
	p, ok := node.(map[string]interface{})
	if !ok {
		return meta
	}
	meta.Total = asInt(p["total"])
	meta.Page = asInt(p["activePage"])
	return meta
}
