package catalog

import (
	"errors"
	"net/url"
	"regexp"
)

var ErrNoProductID = errors.New("no product id found in url")

var idPathPattern = regexp.MustCompile(`/id/(\d+)(?:/|$)`)

// ParseProductURL extracts the product id from a storefront URL. A path
// segment of the form /id/<digits> wins; otherwise the id query parameter is
// tried.
func ParseProductURL(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}

	if m := idPathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	return "", ErrNoProductID
}
