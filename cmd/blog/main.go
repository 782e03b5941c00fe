package main

import (
	"log"

	"github.com/munni1406/Blog-Template/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
