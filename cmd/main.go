package main

import (
	"os"

	"github.com/soundprediction/go-chatforge/cmd/chatforge"
)

func main() {
	if err := chatforge.Execute(); err != nil {
		os.Exit(1)
	}
}
