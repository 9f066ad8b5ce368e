// cmd/vicarapi/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/waffle/app"
	"github.com/vicarhk/vicarapi/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		fmt.Fprintf(os.Stderr, "vicarapi: %v\n", err)
		os.Exit(1)
	}
}
