// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Aleutian components.
//
// It wraps the standard library slog package with multi-destination
// output: stderr for interactive use, plus an optional JSON log file
// per service and day.Aleutian services install the returned logger
// as the process default in main, so library code logs through plain
// slog calls.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config configures the logger. A zero-value Config writes Info and
// above to stderr as text.
type Config struct {
	// Level is the minimum level; messages below it are discarded.
	Level slog.Level

	// Service is attached to every entry as the "service" attribute
	// and names the log file. Default "aleutian".
	Service string

	// JSON switches stderr output to JSON. File output is always JSON.
	JSON bool

	// LogDir enables file logging to {Service}_{YYYY-MM-DD}.log in the
	// given directory, created if missing. Empty disables it.
	LogDir string
}

// Logger owns the log file handle alongside the slog.Logger built over
// it. Close when done if LogDir was set.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New builds a Logger from the config. File-open failures degrade to
// stderr-only logging, reported on stderr.
func New(cfg Config) *Logger {
	if cfg.Service == "" {
		cfg.Service = "aleutian"
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var stderr slog.Handler
	if cfg.JSON {
		stderr = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		stderr = slog.NewTextHandler(os.Stderr, opts)
	}

	l := &Logger{}
	handler := stderr
	if cfg.LogDir != "" {
		if file, err := openLogFile(cfg.LogDir, cfg.Service); err != nil {
			fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
		} else {
			l.file = file
			handler = &fanoutHandler{handlers: []slog.Handler{
				stderr,
				slog.NewJSONHandler(file, opts),
			}}
		}
	}
	handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	l.Logger = slog.New(handler)
	return l
}

// Install builds the logger and makes it the process default.
func Install(cfg Config) *Logger {
	l := New(cfg)
	slog.SetDefault(l.Logger)
	return l
}

// Close syncs and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	return l.file.Close()
}

// fanoutHandler sends each record to every handler that accepts its
// level. Stderr and the file can use different formats.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: handlers}
}

func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}
