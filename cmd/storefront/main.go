// Command storefront is the terminal client for the Urban Harvest shop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"urbanharvest/internal/config"
	"urbanharvest/internal/storage"
)

func main() {
	env := config.LoadClientEnv()

	store, err := storage.OpenFile(env.StatePath)
	if err != nil {
		log.Fatal(err)
	}

	a, err := newApp(os.Stdout, store, env.APIBaseURL)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		stop()
		os.Exit(1)
	}
}
