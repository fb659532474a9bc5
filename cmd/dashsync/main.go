package main

import (
	"log"

	"github.com/MrSnakeDoc/dashsync/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ dashsync failed: %v", err)
	}
}
