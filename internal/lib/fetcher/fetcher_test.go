package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/S1l3ntium/yandex-price-bot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<!DOCTYPE html>
<html>
<body>
	<h1 data-auto="productCardTitle"> Наушники Sony WH-1000XM5 </h1>
	<div>
		<span data-auto="snippet-price-current">24&nbsp;990&nbsp;₽</span>
	</div>
</body>
</html>`

func newTestFetcher(timeout time.Duration) *Fetcher {
	cfg := &config.Config{}
	cfg.Fetcher.Cookie = "session=test"
	cfg.Fetcher.Timeout = timeout
	cfg.Fetcher.UserAgent = "test-agent"
	return New(cfg)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session=test", r.Header.Get("Cookie"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		fmt.Fprint(w, productPage)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)

	info, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Наушники Sony WH-1000XM5", info.Name)
	assert.Equal(t, 24990, info.Price)
}

func TestFetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestFetch_NameMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><span data-auto="snippet-price-current">990₽</span></body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNameNotFound)
}

func TestFetch_PriceMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><h1 data-auto="productCardTitle">Товар</h1></body></html>`)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestFetch_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, productPage)
	}))
	defer srv.Close()

	f := newTestFetcher(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "plain", raw: "1500", want: 1500},
		{name: "currency sign", raw: "1500₽", want: 1500},
		{name: "thousands with nbsp", raw: "24 990 ₽", want: 24990},
		{name: "regular spaces", raw: " 1 234 567 ₽ ", want: 1234567},
		{name: "letters", raw: "цена 1500", wantErr: true},
		{name: "decimal point", raw: "1500.50", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePrice(tc.raw)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
