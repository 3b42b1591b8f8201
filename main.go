package main

import "auctions/internal/cli"

func main() {
	cli.Execute()
}
