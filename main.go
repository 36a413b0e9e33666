// Collects the Tomorrowland artist roster into rarity classified, image backed
// collectible cards.
//
// This file is only here to make installing with go get easier. The source
// lives in the src directory.
package main

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/triple000-it/tml-collection/src"
)

// dataFS holds the built in roster and events. If the embedded directory name
// changes remember to change it in main() too.
//
//go:embed data
var dataFS embed.FS

func main() {
	data, err := fs.Sub(dataFS, "data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading data subFS: %s\n", err)
		os.Exit(1)
	}

	src.Main(data)
}
