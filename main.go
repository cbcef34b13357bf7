package main

import (
	"os"

	"github.com/ObsyanX/kmrl-prototype1-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
