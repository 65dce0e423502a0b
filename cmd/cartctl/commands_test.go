package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/internal/app/service"
	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/kvstore"
	"github.com/marche241/storefront-gateway/pkg/marche"
	"github.com/marche241/storefront-gateway/pkg/marche/marchetest"
	"github.com/marche241/storefront-gateway/pkg/session"
)

type cliFixture struct {
	app  *cli
	api  *marchetest.Server
	shop marche.Shop
	wax  marche.Product
}

func setupCLITest(t *testing.T) *cliFixture {
	t.Helper()

	api := marchetest.NewServer()
	t.Cleanup(api.Close)
	client := api.Client()

	carts := service.NewCartService(cart.NewSyncer(client), session.NewManager(kvstore.NewMemoryStore()))
	f := &cliFixture{
		app: &cli{
			carts:  carts,
			export: service.NewOrderExportService(service.NewOrderService(client, carts)),
		},
		api: api,
	}
	f.shop = api.AddShop(marche.Shop{Name: "Chez Awa", Slug: "chez-awa", OwnerID: 900})
	f.wax = api.AddProduct(marche.Product{ShopID: f.shop.ID, Name: "Pagne wax", Price: decimal.NewFromInt(12000), StockAvailable: 10})
	return f
}

func (f *cliFixture) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(f.app)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCartctl_AddAndGet(t *testing.T) {
	f := setupCLITest(t)
	shop := fmt.Sprint(f.shop.ID)

	out, err := f.run("--shop", shop, "add", fmt.Sprint(f.wax.ID), "2", "--variant", "taille=M")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"nombre_articles": 2`)
	assert.Contains(t, out, `"taille": "M"`)

	out, err = f.run("--shop", shop, "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": "24000"`)

	out, err = f.run("--shop", shop, "session")
	require.NoError(t, err)
	assert.Contains(t, out, `"valide": true`)
}

func TestCartctl_VisitorsAreSeparate(t *testing.T) {
	f := setupCLITest(t)
	shop := fmt.Sprint(f.shop.ID)

	_, err := f.run("--shop", shop, "--visitor", "alice", "add", fmt.Sprint(f.wax.ID), "1")
	require.NoError(t, err)

	out, err := f.run("--shop", shop, "--visitor", "bob", "get")
	require.NoError(t, err)
	assert.Contains(t, out, `"nombre_articles": 0`)
}

func TestCartctl_RejectsBadInput(t *testing.T) {
	f := setupCLITest(t)
	shop := fmt.Sprint(f.shop.ID)

	tests := []struct {
		name string
		args []string
	}{
		{"zero quantity", []string{"--shop", shop, "add", fmt.Sprint(f.wax.ID), "0"}},
		{"bad product id", []string{"--shop", shop, "add", "abc", "1"}},
		{"bad variant", []string{"--shop", shop, "add", fmt.Sprint(f.wax.ID), "1", "--variant", "taille"}},
		{"missing args", []string{"--shop", shop, "update", "7"}},
		{"export without shop", []string{"export", "--token", "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(tt.args...)
			assert.Error(t, err)
		})
	}
	assert.Zero(t, f.api.Calls("POST /api/panier"))
}

func TestCartctl_ResetStartsNewSession(t *testing.T) {
	f := setupCLITest(t)
	shop := fmt.Sprint(f.shop.ID)

	_, err := f.run("--shop", shop, "add", fmt.Sprint(f.wax.ID), "1")
	require.NoError(t, err)
	_, err = f.run("--shop", shop, "reset")
	require.NoError(t, err)

	out, err := f.run("--shop", shop, "session")
	require.NoError(t, err)
	assert.Contains(t, out, `"valide": false`)
}

func TestCartctl_Export(t *testing.T) {
	f := setupCLITest(t)
	f.api.AddSeller("awa@example.com", marche.User{ID: 900})
	output := filepath.Join(t.TempDir(), "commandes.xlsx")

	out, err := f.run("--shop", fmt.Sprint(f.shop.ID), "export", "--token", f.api.Token("awa@example.com"), "-o", output)

	require.NoError(t, err, out)
	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestParseVariants(t *testing.T) {
	variants, err := parseVariants([]string{"taille=M", "couleur=bleu"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"taille": "M", "couleur": "bleu"}, variants)

	variants, err = parseVariants(nil)
	require.NoError(t, err)
	assert.Nil(t, variants)
}
