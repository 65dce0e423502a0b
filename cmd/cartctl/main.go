// Command cartctl drives a visitor cart against the Marché241 API from the
// shell, using the same session store and cart client as the gateway.
package main

import (
	"fmt"
	"os"

	"github.com/marche241/storefront-gateway/pkg/logger"
)

func main() {
	logger.Initialize(logger.Config{Level: "warn", Format: "console", Output: os.Stderr})

	app := &cli{}
	err := newRootCmd(app).Execute()
	app.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		os.Exit(1)
	}
}
