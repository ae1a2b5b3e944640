// Command datapipe runs, validates and inspects data pipeline definitions.
package main

import (
	"os"

	_ "github.com/kbukum/datapipe/storage/local"
	_ "github.com/kbukum/datapipe/storage/memory"
	_ "github.com/kbukum/datapipe/storage/s3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
