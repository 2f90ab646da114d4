package crawler

import (
	"net/url"
	"strconv"
)

// pageURL returns base with its page query parameter set to page, overriding
// any page parameter the base already carries. Every other query parameter
// and the path pass through unchanged.
func pageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
