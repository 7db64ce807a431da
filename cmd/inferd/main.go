package main

import (
	"os"

	"inferd/internal/slogutil"
)

func main() {
	logger := slogutil.NewLogger(os.Stderr, slogutil.LevelFromString("info"))

	if err := newRootCmd().Execute(); err != nil {
		logger.Error("Command execution failed", "error", err.Error())
		os.Exit(1)
	}
}
