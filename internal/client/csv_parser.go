package client

import (
	"errors"
	"regexp"
	"strings"

	"storefront/app/internal/domain"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrEmptyFeed is returned when the feed has no header line.
var ErrEmptyFeed = errors.New("catalog feed is empty")

const untitledProduct = "Untitled Product"

var (
	lineSplitRegex    = regexp.MustCompile(`\r?\n`)
	imageSplitRegex   = regexp.MustCompile(`[|,;\s]+`)
	imageSchemeRegex  = regexp.MustCompile(`(?i)^https?://`)
	slugRegex         = regexp.MustCompile(`[^a-z0-9]+`)
	leadingFloatRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Row is one data line keyed by the header names.
type Row struct {
	headers []string
	values  map[string]string
}

// Get looks the field up by exact header name first and then ignoring case.
func (r Row) Get(field string) string {
	if v, ok := r.values[field]; ok {
		return v
	}
	for _, h := range r.headers {
		if strings.EqualFold(h, field) {
			return r.values[h]
		}
	}
	return ""
}

type csvParser struct {
	placeholderImage string
}

func newCSVParser(placeholderImage string) *csvParser {
	return &csvParser{
		placeholderImage: placeholderImage,
	}
}

// ParseProducts turns a feed into products. fallbackCurrency is used for rows
// without a Currency column value.
func (p *csvParser) ParseProducts(text, fallbackCurrency string) ([]domain.Product, error) {
	rows, err := ParseRows(text)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(rows))
	for i, row := range rows {
		product := p.rowToProduct(row, fallbackCurrency)
		if product.Name == "" || product.Price.IsNegative() {
			log.Warnf("⚠️ Skipping catalog row %d (%q): missing name or negative price", i+2, product.Name)
			continue
		}
		products = append(products, product)
	}

	log.Debugf("Parsed %d products from %d rows", len(products), len(rows))
	return products, nil
}

// ParseRows splits the feed into header-keyed rows, skipping blank lines.
func ParseRows(text string) ([]Row, error) {
	lines := make([]string, 0)
	for _, line := range lineSplitRegex.Split(text, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyFeed
	}

	headers := SplitLine(lines[0])
	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := SplitLine(line)
		row := Row{headers: headers, values: make(map[string]string, len(headers))}
		for i, h := range headers {
			if i < len(cells) {
				row.values[h] = cells[i]
			} else {
				row.values[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// SplitLine splits on commas outside double quotes. Quoted cells lose their
// quotes and "" becomes ".
func SplitLine(line string) []string {
	parts := make([]string, 0)
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())

	for i, part := range parts {
		parts[i] = unquoteCell(part)
	}
	return parts
}

func unquoteCell(cell string) string {
	v := strings.TrimSpace(cell)
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		if len(v) < 2 {
			return ""
		}
		v = strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}

func (p *csvParser) rowToProduct(row Row, fallbackCurrency string) domain.Product {
	title := row.Get("Title")
	if title == "" {
		title = untitledProduct
	}

	sku := row.Get("SKU")
	if sku == "" {
		sku = Slugify(title)
	}

	currency := row.Get("Currency")
	if currency == "" {
		currency = fallbackCurrency
	}

	return domain.Product{
		ID:          sku,
		Name:        title,
		Price:       ParsePrice(row.Get("Price")),
		Currency:    strings.ToUpper(currency),
		Image:       p.FirstImage(row.Get("Images")),
		Description: row.Get("Description"),
		Brand:       row.Get("Brand"),
	}
}

// Slugify lower-cases the title and collapses non-alphanumeric runs to one hyphen.
func Slugify(title string) string {
	slug := slugRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// ParsePrice reads the leading number of the cell. Anything unreadable is zero.
func ParsePrice(cell string) decimal.Decimal {
	match := leadingFloatRegex.FindString(strings.TrimSpace(cell))
	if match == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// FirstImage picks the first http(s) URL from a list separated by | , ; or
// whitespace.
func (p *csvParser) FirstImage(cell string) string {
	for _, candidate := range imageSplitRegex.Split(cell, -1) {
		if imageSchemeRegex.MatchString(candidate) {
			return candidate
		}
	}
	return p.placeholderImage
}
