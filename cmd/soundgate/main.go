package main

import (
	"log"

	"github.com/MrSnakeDoc/soundgate/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ soundgate failed: %v", err)
	}
}
