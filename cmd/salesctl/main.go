package main

import (
	"os"

	"sales-dashboard/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
