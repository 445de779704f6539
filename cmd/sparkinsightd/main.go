package main

import (
	"log"

	"github.com/warrenzhu25/spark-insight/pkg/api"
)

func main() {
	if err := api.Serve(); err != nil {
		log.Fatal(err)
	}
}
