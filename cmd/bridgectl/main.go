package main

import "github.com/cloudbridge-dev/cloudbridge/internal/cli"

func main() {
	cli.Execute()
}
