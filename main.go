package main

import (
	"github.com/glint-nvim/glint/cmd"
	"github.com/glint-nvim/glint/internal/logging"
	"github.com/glint-nvim/glint/internal/status"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		status.Error("Engine terminated due to unhandled panic")
	})

	cmd.Execute()
}
