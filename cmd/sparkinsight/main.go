package main

import (
	"github.com/warrenzhu25/spark-insight/pkg/cli"
)

func main() {
	cli.Execute()
}
