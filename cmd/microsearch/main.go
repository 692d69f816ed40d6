package main

import (
	"github.com/Warren2005/medical-microscopy/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
