// hookpipe adapts exec-per-hook hosts: it reads one hook event JSON document
// from stdin, feeds it to a streaming-mode engine rooted at -dir, and exits.
// Only setup failures are fatal; processing problems are logged and swallowed
// so the host's own flow is never disturbed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hooktrail/hooktrail/internal/engine"
	"github.com/hooktrail/hooktrail/internal/hook"
	"github.com/hooktrail/hooktrail/internal/shared"
	"go.uber.org/zap"
)

func main() {
	baseDir := flag.String("dir", "./hooktrail-logs", "base log directory")
	roundFiles := flag.Bool("round-files", false, "mirror entries into per-round files")
	name := flag.String("name", "", "notification name override (else taken from the document)")
	flag.Parse()

	logger, err := shared.NewLogger("warn", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	eng, err := engine.New(engine.Options{
		BaseDir:    *baseDir,
		Mode:       engine.ModeStreaming,
		RoundFiles: *roundFiles,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create engine", zap.Error(err))
		os.Exit(1)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("failed to read stdin", zap.Error(err))
		os.Exit(1)
	}

	var ev hook.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		logger.Warn("unparseable hook event on stdin", zap.Error(err))
		return
	}
	if *name != "" {
		ev.Name = *name
	}

	if err := eng.HandleEvent(context.Background(), ev); err != nil {
		logger.Warn("hook event processing failed",
			zap.String("session_id", ev.SessionID),
			zap.String("name", ev.Name),
			zap.Error(err),
		)
	}
}
