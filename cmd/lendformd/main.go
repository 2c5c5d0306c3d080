package main

import (
	"log"

	"corefi/services/lendformd"
)

func main() {
	if err := lendformd.Main(); err != nil {
		log.Fatalf("lendformd: %v", err)
	}
}
