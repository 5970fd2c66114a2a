// Package shopify implements the order source against the Shopify Admin
// REST API.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/wickery/storepulse/internal/entity"
)

const (
	defaultAPIVersion = "2023-07"
	pageLimit         = 250
	// maxPages bounds pagination so a bad Link loop can't hang a run.
	maxPages = 40
)

// ErrUnauthorized marks a rejected access token, distinct from transient
// transport failures.
var ErrUnauthorized = errors.New("shopify: access token rejected")

type Config struct {
	// ShopDomain is the myshopify host. A full URL is accepted as-is,
	// which is what tests pass.
	ShopDomain  string `mapstructure:"shop_domain"`
	AccessToken string `mapstructure:"access_token"`
	APIVersion  string `mapstructure:"api_version"`
}

// Client implements dependency.OrderSource.
type Client struct {
	c   *Config
	cli *resty.Client
}

func New(c *Config) (*Client, error) {
	if c.ShopDomain == "" {
		return nil, fmt.Errorf("shopify: shop domain is not set")
	}
	version := c.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	base := c.ShopDomain
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	cli := resty.New()
	cli.SetBaseURL(fmt.Sprintf("%s/admin/api/%s", base, version))
	cli.SetHeader("X-Shopify-Access-Token", c.AccessToken)
	cli.SetTimeout(30 * time.Second)
	return &Client{c: c, cli: cli}, nil
}

// GetOrders fetches every order created in [from, to], following cursor
// pagination until the Link header carries no next page. An empty range is
// a nil error with an empty slice.
func (c *Client) GetOrders(ctx context.Context, from, to time.Time) ([]entity.Order, error) {
	orders := []entity.Order{}
	req := func() *resty.Request { return c.cli.R().SetContext(ctx) }

	resp, err := req().
		SetQueryParams(map[string]string{
			"created_at_min": from.UTC().Format(time.RFC3339),
			"created_at_max": to.UTC().Format(time.RFC3339),
			"status":         "any",
			"limit":          strconv.Itoa(pageLimit),
		}).
		Get("orders.json")
	if err != nil {
		return nil, fmt.Errorf("can't fetch orders: %w", err)
	}

	for page := 0; page < maxPages; page++ {
		batch, err := parseOrdersResponse(resp)
		if err != nil {
			return nil, err
		}
		orders = append(orders, batch...)

		next := nextPageURL(resp.Header().Get("Link"))
		if next == "" {
			return orders, nil
		}
		resp, err = req().Get(next)
		if err != nil {
			return nil, fmt.Errorf("can't fetch orders page: %w", err)
		}
	}
	return nil, fmt.Errorf("order pagination did not terminate after %d pages", maxPages)
}

func parseOrdersResponse(resp *resty.Response) ([]entity.Order, error) {
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode())
	default:
		return nil, fmt.Errorf("orders request failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	var body ordersResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("can't unmarshal orders response: %w", err)
	}
	out := make([]entity.Order, 0, len(body.Orders))
	for i := range body.Orders {
		o, err := body.Orders[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageURL extracts the rel="next" target from a Link header, empty on
// the last page.
func nextPageURL(link string) string {
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		if m := nextLinkRe.FindStringSubmatch(part); m != nil {
			return m[1]
		}
	}
	return ""
}

type ordersResponse struct {
	Orders []orderJSON `json:"orders"`
}

type orderJSON struct {
	Id              int64          `json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	TotalPrice      string         `json:"total_price"`
	SubtotalPrice   string         `json:"subtotal_price"`
	TotalTax        string         `json:"total_tax"`
	Email           string         `json:"email"`
	Customer        *customerJSON  `json:"customer"`
	LineItems       []lineItemJSON `json:"line_items"`
	Tags            string         `json:"tags"`
	Note            string         `json:"note"`
	FinancialStatus string         `json:"financial_status"`
	SourceName      string         `json:"source_name"`
	LocationId      *int64         `json:"location_id"`
}

type customerJSON struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type lineItemJSON struct {
	ProductId    int64  `json:"product_id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

func (o *orderJSON) toEntity() (entity.Order, error) {
	total, err := parsePrice(o.TotalPrice)
	if err != nil {
		return entity.Order{}, fmt.Errorf("order %d: %w", o.Id, err)
	}
	subtotal, err := parsePrice(o.SubtotalPrice)
	if err != nil {
		return entity.Order{}, fmt.Errorf("order %d: %w", o.Id, err)
	}
	tax, err := parsePrice(o.TotalTax)
	if err != nil {
		return entity.Order{}, fmt.Errorf("order %d: %w", o.Id, err)
	}

	email := o.Email
	name := ""
	if o.Customer != nil {
		if email == "" {
			email = o.Customer.Email
		}
		name = strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	}

	var tags []string
	for _, t := range strings.Split(o.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	locationId := ""
	if o.LocationId != nil {
		locationId = strconv.FormatInt(*o.LocationId, 10)
	}

	items := make([]entity.LineItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		price, err := parsePrice(li.Price)
		if err != nil {
			return entity.Order{}, fmt.Errorf("order %d line item %q: %w", o.Id, li.Title, err)
		}
		items = append(items, entity.LineItem{
			ProductId:    li.ProductId,
			Title:        li.Title,
			VariantTitle: li.VariantTitle,
			SKU:          li.SKU,
			Quantity:     li.Quantity,
			Price:        price,
		})
	}

	return entity.Order{
		Id:              o.Id,
		CreatedAt:       o.CreatedAt,
		TotalPrice:      total,
		SubtotalPrice:   subtotal,
		TotalTax:        tax,
		CustomerEmail:   email,
		CustomerName:    name,
		LineItems:       items,
		Tags:            tags,
		Note:            o.Note,
		FinancialStatus: o.FinancialStatus,
		SourceName:      o.SourceName,
		LocationId:      locationId,
	}, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't parse price %q: %w", s, err)
	}
	return d, nil
}
