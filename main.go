package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/spigell/cv-matcher/cmd"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
