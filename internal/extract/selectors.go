package extract

import "dario.cat/mergo"

// Selectors maps every product field to the selector that locates it on the
// page template. Row-relative selectors (SpecKey, SpecValue) are evaluated
// inside each SpecRows match. Reveal may be CSS or XPath; all others are CSS.
type Selectors struct {
	Title             string `mapstructure:"title" json:"title"`
	SKU               string `mapstructure:"sku" json:"sku"`
	Price             string `mapstructure:"price" json:"price"`
	PriceFallback     string `mapstructure:"pricefallback" json:"priceFallback"`
	PriceFallbackAttr string `mapstructure:"pricefallbackattr" json:"priceFallbackAttr"`
	Description       string `mapstructure:"description" json:"description"`
	Stock             string `mapstructure:"stock" json:"stock"`
	Images            string `mapstructure:"images" json:"images"`
	ImageAttr         string `mapstructure:"imageattr" json:"imageAttr"`
	SpecRows          string `mapstructure:"specrows" json:"specRows"`
	SpecKey           string `mapstructure:"speckey" json:"specKey"`
	SpecValue         string `mapstructure:"specvalue" json:"specValue"`
	Breadcrumbs       string `mapstructure:"breadcrumbs" json:"breadcrumbs"`
	Reveal            string `mapstructure:"reveal" json:"reveal"`
}

// DefaultSelectors matches the storefront product template the crawler was
// first written for.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:             "h1",
		SKU:               `span[itemprop="name"]`,
		Price:             `label[itemprop="offers"] span`,
		PriceFallback:     `meta[itemprop="price"]`,
		PriceFallbackAttr: "content",
		Description:       `p.mt-2[class~="text-[14px]"]`,
		Stock:             ".text-green-600",
		Images:            `img[alt="Original"]`,
		ImageAttr:         "src",
		SpecRows:          "#specTable tr",
		SpecKey:           "td:first-child",
		SpecValue:         "td:last-child",
		Breadcrumbs:       `nav[aria-label="breadcrumb"] a`,
		Reveal:            `//span[normalize-space(text())="See More"]`,
	}
}

// WithDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	out := s
	if err := mergo.Merge(&out, DefaultSelectors()); err != nil {
		return DefaultSelectors()
	}
	return out
}

type AuditSelectors struct {
	MetaDescription     string `mapstructure:"metadescription" json:"metaDescription"`
	MetaDescriptionAttr string `mapstructure:"metadescriptionattr" json:"metaDescriptionAttr"`
	H1                  string `mapstructure:"h1" json:"h1"`
}

func DefaultAuditSelectors() AuditSelectors {
	return AuditSelectors{
		MetaDescription:     `meta[name='description']`,
		MetaDescriptionAttr: "content",
		H1:                  "h1",
	}
}

func (s AuditSelectors) WithDefaults() AuditSelectors {
	out := s
	if err := mergo.Merge(&out, DefaultAuditSelectors()); err != nil {
		return DefaultAuditSelectors()
	}
	return out
}

// NamedSelector pairs a configuration key with its selector.
type NamedSelector struct {
	Name     string
	Selector string
	// Attr is read instead of the text when set.
	Attr string
	// RowRelative selectors are evaluated inside a SpecRows match.
	RowRelative bool
}

// Named lists the selectors in a stable order, for diagnostics.
func (s Selectors) Named() []NamedSelector {
	return []NamedSelector{
		{Name: "title", Selector: s.Title},
		{Name: "sku", Selector: s.SKU},
		{Name: "price", Selector: s.Price},
		{Name: "priceFallback", Selector: s.PriceFallback, Attr: s.PriceFallbackAttr},
		{Name: "description", Selector: s.Description},
		{Name: "stock", Selector: s.Stock},
		{Name: "images", Selector: s.Images, Attr: s.ImageAttr},
		{Name: "specRows", Selector: s.SpecRows},
		{Name: "specKey", Selector: s.SpecKey, RowRelative: true},
		{Name: "specValue", Selector: s.SpecValue, RowRelative: true},
		{Name: "breadcrumbs", Selector: s.Breadcrumbs},
		{Name: "reveal", Selector: s.Reveal},
	}
}
