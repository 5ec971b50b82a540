package main

import (
	"os"

	"github.com/MoffettMcKenna/IniLiteORM/cli/commands"
	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}
