package main

import (
	"os"

	"horse.fit/folio/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
