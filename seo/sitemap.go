package seo

import (
	"encoding/xml"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// SitemapProduct is a product entry; UpdatedAt may be zero.
type SitemapProduct struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

var staticPages = []struct {
	path     string
	priority string
}{
	{"/cart", "0.5"},
	{"/contact-us", "0.7"},
	{"/login", "0.3"},
	{"/register", "0.3"},
}

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// BuildSitemap lists the homepage, categories, products and static pages.
func BuildSitemap(site Site, categories []string, products []SitemapProduct, now time.Time) URLSet {
	site = site.withDefaults()
	today := day(now)

	set := URLSet{Xmlns: sitemapNS}
	set.URLs = append(set.URLs, URL{Loc: site.URL, LastMod: today, ChangeFreq: "daily", Priority: "1.0"})

	for _, name := range categories {
		set.URLs = append(set.URLs, URL{
			Loc: site.URL + CategoryPath(name), LastMod: today, ChangeFreq: "weekly", Priority: "0.8",
		})
	}
	for _, p := range products {
		lastmod := today
		if !p.UpdatedAt.IsZero() {
			lastmod = day(p.UpdatedAt)
		}
		set.URLs = append(set.URLs, URL{
			Loc: site.URL + ProductPath(p.Name, p.ID), LastMod: lastmod, ChangeFreq: "monthly", Priority: "0.6",
		})
	}
	for _, page := range staticPages {
		set.URLs = append(set.URLs, URL{
			Loc: site.URL + page.path, LastMod: today, ChangeFreq: "monthly", Priority: page.priority,
		})
	}
	return set
}

// Marshal renders the set with the XML declaration.
func (s URLSet) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// RobotsTxt allows everything and points crawlers at the sitemap.
func RobotsTxt(site Site) string {
	site = site.withDefaults()
	return "User-agent: *\nAllow: /\n\nSitemap: " + site.URL + "/sitemap.xml\n\nCrawl-delay: 1\n"
}
