package alpaca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// ErrTooManyPages indica que se alcanzó el corte de páginas con datos pendientes.
var ErrTooManyPages = errors.New("alpaca: page limit reached with more bars pending")

const (
	barsPath     = "/v2/stocks/bars"
	barsPageSize = 10000
	// corte de seguridad por si la API devuelve tokens en bucle
	defaultMaxPages = 1000
)

// FetchBars implementa ports.BarProvider. Pagina con next_page_token hasta
// agotar el rango y devuelve las barras ordenadas por símbolo y timestamp.
func (c *Client) FetchBars(ctx context.Context, req domain.BarRequest) ([]domain.Bar, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("alpaca.FetchBars: no symbols")
	}
	tf := req.Timeframe
	if tf == "" {
		tf = domain.TimeframeMinute
	}

	bySymbol := make(map[string][]domain.Bar, len(req.Symbols))
	token := ""
	for page := 0; ; page++ {
		if page == c.maxPages {
			return nil, fmt.Errorf("alpaca.FetchBars: %d pages: %w", page, ErrTooManyPages)
		}
		var resp barsResponse
		if err := c.get(ctx, c.barsURL(req, tf, token), &resp); err != nil {
			return nil, fmt.Errorf("alpaca.FetchBars: page %d: %w", page, err)
		}
		for sym, bars := range resp.Bars {
			for _, b := range bars {
				bySymbol[sym] = append(bySymbol[sym], toDomainBar(sym, b))
			}
		}
		if resp.NextPageToken == nil || *resp.NextPageToken == "" {
			break
		}
		token = *resp.NextPageToken
	}

	syms := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	var out []domain.Bar
	for _, s := range syms {
		series := bySymbol[s]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
		out = append(out, series...)
		slog.Debug("alpaca: fetched bars", "symbol", s, "bars", len(series))
	}
	return out, nil
}

func (c *Client) barsURL(req domain.BarRequest, tf domain.Timeframe, token string) string {
	q := url.Values{}
	q.Set("symbols", strings.Join(req.Symbols, ","))
	q.Set("timeframe", string(tf))
	q.Set("start", req.Start.UTC().Format(time.RFC3339))
	q.Set("end", req.End.UTC().Format(time.RFC3339))
	q.Set("limit", fmt.Sprintf("%d", barsPageSize))
	q.Set("adjustment", "raw")
	q.Set("feed", c.feed)
	if token != "" {
		q.Set("page_token", token)
	}
	return c.dataBase + barsPath + "?" + q.Encode()
}

func toDomainBar(symbol string, b apiBar) domain.Bar {
	return domain.Bar{
		Symbol:    symbol,
		Timestamp: b.Timestamp.UTC(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}
