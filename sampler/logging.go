package main

import (
	"io"
	"log"
	"os"

	"github.com/itohio/capsense/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging sends the standard logger to stderr and, when a file is
// configured, to a size-rotated log file. The returned closer is nil when no
// file is used.
func setupLogging(cfg config.LogConfig) io.Closer {
	if cfg.File == "" {
		return nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return lj
}
