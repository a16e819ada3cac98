package seo

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	DefaultSiteName = "ME Gift Packs"
	DefaultSiteURL  = "https://megiftpacks.com"
	Currency        = "QAR"

	maxDescription = 160
)

// Site identifies the storefront in generated tags.
type Site struct {
	Name string
	URL  string
}

func (s Site) withDefaults() Site {
	if s.Name == "" {
		s.Name = DefaultSiteName
	}
	if s.URL == "" {
		s.URL = DefaultSiteURL
	}
	s.URL = strings.TrimRight(s.URL, "/")
	return s
}

// ProductInput is the subset of a catalog product the SEO helpers read.
type ProductInput struct {
	ID          string
	Name        string
	Description string
	Category    string
	Brand       string
	SKU         string
	Price       decimal.Decimal
	Stock       *int
	ImageURL    string
}

type Meta struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Keywords     string          `json:"keywords"`
	Image        string          `json:"image"`
	URL          string          `json:"url"`
	Price        decimal.Decimal `json:"price"`
	SKU          string          `json:"sku"`
	Brand        string          `json:"brand"`
	Availability string          `json:"availability"`
}

// Availability reports InStock unless stock is tracked and exhausted.
func Availability(stock *int) string {
	if stock != nil && *stock <= 0 {
		return "OutOfStock"
	}
	return "InStock"
}

func ProductMeta(site Site, p ProductInput) Meta {
	site = site.withDefaults()

	brand := p.Brand
	if brand == "" {
		brand = site.Name
	}
	description := p.Description
	if description == "" {
		description = p.Name + " - High quality " + p.Category + " from " + site.Name
	}

	return Meta{
		Title:        p.Name + " | " + site.Name + " - Corporate Gifts",
		Description:  truncateRunes(description, maxDescription),
		Keywords:     strings.Join([]string{p.Name, p.Category, "corporate gifts", "promotional gifts", brand}, ", "),
		Image:        p.ImageURL,
		URL:          site.URL + ProductPath(p.Name, p.ID),
		Price:        p.Price,
		SKU:          p.SKU,
		Brand:        brand,
		Availability: Availability(p.Stock),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type thing struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type offer struct {
	Type          string          `json:"@type"`
	Price         decimal.Decimal `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
	Availability  string          `json:"availability"`
	Seller        thing           `json:"seller"`
}

// ProductLD is schema.org Product markup.
type ProductLD struct {
	Context      string   `json:"@context"`
	Type         string   `json:"@type"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SKU          string   `json:"sku,omitempty"`
	Brand        thing    `json:"brand"`
	Category     string   `json:"category,omitempty"`
	Image        []string `json:"image"`
	Offers       offer    `json:"offers"`
	Manufacturer thing    `json:"manufacturer"`
}

func ProductStructuredData(site Site, p ProductInput) ProductLD {
	site = site.withDefaults()
	meta := ProductMeta(site, p)

	images := []string{}
	if meta.Image != "" {
		images = append(images, meta.Image)
	}
	description := p.Description
	if description == "" {
		description = meta.Description
	}

	return ProductLD{
		Context:     "https://schema.org",
		Type:        "Product",
		Name:        p.Name,
		Description: description,
		SKU:         p.SKU,
		Brand:       thing{Type: "Brand", Name: meta.Brand},
		Category:    p.Category,
		Image:       images,
		Offers: offer{
			Type:          "Offer",
			Price:         meta.Price,
			PriceCurrency: Currency,
			Availability:  "https://schema.org/" + meta.Availability,
			Seller:        thing{Type: "Organization", Name: site.Name, URL: site.URL},
		},
		Manufacturer: thing{Type: "Organization", Name: site.Name},
	}
}

type Crumb struct {
	Name string
	URL  string
}

type listItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item"`
}

type BreadcrumbLD struct {
	Context         string     `json:"@context"`
	Type            string     `json:"@type"`
	ItemListElement []listItem `json:"itemListElement"`
}

// BreadcrumbStructuredData numbers crumbs from 1 in the order given.
func BreadcrumbStructuredData(crumbs []Crumb) BreadcrumbLD {
	items := make([]listItem, len(crumbs))
	for i, c := range crumbs {
		items[i] = listItem{Type: "ListItem", Position: i + 1, Name: c.Name, Item: c.URL}
	}
	return BreadcrumbLD{Context: "https://schema.org", Type: "BreadcrumbList", ItemListElement: items}
}

// ProductBreadcrumbs is Home > Category > Product.
func ProductBreadcrumbs(site Site, p ProductInput) []Crumb {
	site = site.withDefaults()
	crumbs := []Crumb{{Name: "Home", URL: site.URL}}
	if p.Category != "" {
		crumbs = append(crumbs, Crumb{Name: p.Category, URL: site.URL + CategoryPath(p.Category)})
	}
	return append(crumbs, Crumb{Name: p.Name, URL: site.URL + ProductPath(p.Name, p.ID)})
}
