package main

import (
	"context"

	"github.com/maltedev/mortgage-rate-scraper/cmd/ratescraper/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
