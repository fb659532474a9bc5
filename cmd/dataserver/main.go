package main

import (
	"log"

	"github.com/MrSnakeDoc/dashsync/internal/app"
)

func main() {
	if err := app.NewDataServer().Run(); err != nil {
		log.Fatalf("❌ dataserver failed: %v", err)
	}
}
