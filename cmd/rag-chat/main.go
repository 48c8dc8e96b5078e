package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/futig/rag-chat/internal/tui"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "chat server address")
	session := flag.String("session", "", "session id to continue (a new one by default)")
	headerTimeout := flag.Duration("timeout", 2*time.Minute, "how long to wait for the first answer fragment")
	flag.Parse()

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := tui.NewClient(*server, *headerTimeout, zap.NewNop())
	p := tea.NewProgram(tui.New(ctx, client, sessionID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chat error:", err)
		os.Exit(1)
	}

	fmt.Println("session:", sessionID)
}
