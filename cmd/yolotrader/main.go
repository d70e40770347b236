package main

import (
	"os"

	"yolotrader/cmd/yolotrader/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
