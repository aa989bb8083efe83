package main

import "github.com/ogulcanaydogan/stockwatch/internal/cli"

func main() {
	cli.Execute()
}
