package main

import (
	"os"

	"github.com/NeuralTrust/RecruitGate/cmd/recruitgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
