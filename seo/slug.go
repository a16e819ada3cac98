package seo

import (
	"regexp"
	"strings"
)

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify lowercases s, drops anything that is not a letter, digit, space or
// hyphen, and joins words with single hyphens.
func Slugify(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = slugStrip.ReplaceAllString(out, "")
	out = slugSpaces.ReplaceAllString(out, "-")
	out = slugDashes.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// ProductPath is the storefront path for a product: /product/<slug>/<id>.
func ProductPath(name, id string) string {
	return "/product/" + Slugify(name) + "/" + id
}

func CategoryPath(name string) string {
	return "/category/" + Slugify(name)
}
