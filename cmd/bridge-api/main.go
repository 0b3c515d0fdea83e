package main

import (
	"context"
	"log"

	"github.com/cloudbridge-dev/cloudbridge/internal/bridge/app"
)

func main() {
	if err := app.App(context.Background()); err != nil {
		log.Fatal(err)
	}
}
