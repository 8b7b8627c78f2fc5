package main

import (
	"os"

	"github.com/iisacc-Justmoong/WhatSon/pkg/cli"
)

var version = "dev"

func main() {
	if err := cli.ExecuteBuild(version); err != nil {
		os.Exit(1)
	}
}
