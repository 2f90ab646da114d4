package crawler

import (
	"fmt"
	"strconv"
	"strings"
)

// mapAd converts one raw record into an Ad. The site id is the one required
// field; records without it are unusable as listings and ok is false.
func mapAd(raw RawAd) (Ad, bool) {
	id := asString(raw["id"])
	if id == "" {
		return Ad{}, false
	}

	ad := Ad{
		ID:             id,
		Slug:           asString(raw["slug"]),
		Title:          asString(raw["title"]),
		Description:    asString(raw["description"]),
		Details:        asDetails(raw["details"]),
		Subtitle:       asString(raw["subtitle"]),
		ImageURL:       asString(raw["imgUrl"]),
		Price:          asString(raw["price"]),
		Discount:       asInt64(raw["discount"]),
		Timestamp:      asString(raw["timeStamp"]),
		LastBumpUpDate: asString(raw["lastBumpUpDate"]),
	}

	if images, ok := raw["images"].(map[string]interface{}); ok {
		if ids, ok := images["ids"].([]interface{}); ok {
			ad.Images.IDs = make([]string, 0, len(ids))
			for _, v := range ids {
				if s := asString(v); s != "" {
					ad.Images.IDs = append(ad.Images.IDs, s)
				}
			}
		}
		ad.Images.BaseURI = asString(images["base_uri"])
	}

	if category, ok := raw["category"].(map[string]interface{}); ok {
		ad.Category = Category{
			ID:         asInt64(category["id"]),
			Name:       asString(category["name"]),
			ParentName: asString(category["parentName"]),
		}
	}

	return ad, true
}

// asString renders a decoded JSON value as text. Numbers keep their shortest
// representation so an id of 101 becomes "101", not "101.000000".
func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asInt(v interface{}) int {
	return int(asInt64(v))
}

// asDetails normalizes the record's details value into plain label strings.
// The site serves either a single summary string or a list of label objects.
func asDetails(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		details := make([]string, 0, len(t))
		for _, item := range t {
			if s := flattenDetail(item); s != "" {
				details = append(details, s)
			}
		}
		if len(details) == 0 {
			return nil
		}
		return details
	default:
		if s := asString(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// flattenDetail reduces one detail entry to a display string. Label objects
// keep their human-readable field and drop the rest.
func flattenDetail(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return asString(v)
	}
	for _, key := range []string{"label", "name", "value"} {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}
