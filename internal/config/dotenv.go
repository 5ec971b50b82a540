package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
)

// setenv is swapped in tests.
var setenv = os.Setenv

// loadDotenv exports the variables of a .env style file. Without override,
// variables already present in the environment win.
func loadDotenv(name string, override bool) {
	f, err := AppFs.Open(name)
	if err != nil {
		return
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		debug.Warn("Ignoring unreadable env file", "file", name, "error", err)
		return
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := setenv(k, v); err != nil {
			debug.Warn("Could not export env file variable", "file", name, "key", k, "error", err)
		}
	}
}
