// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command concierge runs the data concierge service.
//
// Usage:
//
//	concierge serve
//	concierge ask "how many per month between Feb and Aug 2025?"
//
// Example requests once serving:
//
//	curl http://localhost:8086/healthz
//
//	curl -X POST http://localhost:8086/v1/concierge/chat \
//	  -H "Content-Type: application/json" \
//	  -d '{"conversation_id":"demo","messages":[{"id":"m1","role":"user","content":"how many last year?"}]}'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianData/pkg/logging"
	data_concierge "github.com/AleutianAI/AleutianData/services/data_concierge"
	"github.com/AleutianAI/AleutianData/services/data_concierge/datatypes"
)

var (
	port          int
	debug         bool
	storeURL      string
	knowledgePath string
	fullContext   bool

	rootCmd = &cobra.Command{
		Use:   "concierge",
		Short: "Conversational query engine over the records store",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logging.Install(logging.Config{
				Level:   level,
				Service: "concierge",
				JSON:    true,
				LogDir:  getEnvString("CONCIERGE_LOG_DIR", ""),
			})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the concierge HTTP service",
		RunE:  runServe,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Classify and answer one question, printing the instruction list",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", getEnvBool("CONCIERGE_DEBUG", false), "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store-url",
		getEnvString("CONCIERGE_STORE_URL", "http://localhost:9180"), "Base URL of the records store")
	rootCmd.PersistentFlags().StringVar(&knowledgePath, "knowledge",
		getEnvString("CONCIERGE_KNOWLEDGE_PATH", ""), "Optional yaml knowledge file")
	rootCmd.PersistentFlags().BoolVar(&fullContext, "full-context",
		getEnvBool("CONCIERGE_FULL_CONTEXT", false), "Attach a dataset snapshot to unclassified messages")
	serveCmd.Flags().IntVar(&port, "port", getEnvInt("CONCIERGE_PORT", 8086), "Port to listen on")

	rootCmd.AddCommand(serveCmd, askCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildService() (*data_concierge.Service, error) {
	cfg := data_concierge.DefaultServiceConfig()
	cfg.StoreBaseURL = storeURL
	cfg.KnowledgePath = knowledgePath
	cfg.FullContext = fullContext
	return data_concierge.NewService(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	svc, err := buildService()
	if err != nil {
		return err
	}
	return svc.Run(fmt.Sprintf(":%d", port))
}

func runAsk(cmd *cobra.Command, args []string) error {
	gin.SetMode(gin.ReleaseMode)
	svc, err := buildService()
	if err != nil {
		return err
	}
	req := &datatypes.ConciergeRequest{
		ConversationID: "cli",
		Messages:       []datatypes.Message{{ID: "cli-1", Role: "user", Content: args[0]}},
	}
	req.EnsureDefaults()

	instructions := svc.Router().Handle(context.Background(), req)
	if len(instructions) == 0 {
		fmt.Println("(no instructions)")
		return nil
	}
	for _, ins := range instructions {
		fmt.Printf("[%s]\n%s\n\n", ins.Role, ins.Content)
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
