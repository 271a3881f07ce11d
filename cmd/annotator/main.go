package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	annotator "github.com/menta2k/roi-annotator"
	"github.com/menta2k/roi-annotator/internal/cli"
)

func main() {
	root := cli.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(annotator.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
