package main

import (
	"context"
	"log"

	"github.com/iliyamo/seller-rotation/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
