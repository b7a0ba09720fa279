package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"

	"counselweb/internal/chat"
	"counselweb/internal/models"
	"counselweb/internal/services"
	"counselweb/internal/stream"
)

type stderrNotifier struct{}

func (stderrNotifier) Notify(message string) {
	fmt.Fprintf(os.Stderr, "\n! %s\n", message)
}

func main() {
	server := flag.String("server", "http://localhost:8080", "gateway base URL")
	dbPath := flag.String("db", "", "path to the session database (defaults to the user config dir)")
	style := flag.String("style", "", "conversation style: counselor, simple, or plain")
	newSession := flag.Bool("new", false, "start a new conversation")
	list := flag.Bool("list", false, "list sessions and exit")
	deleteID := flag.String("delete", "", "delete the session with this id and exit")
	exportID := flag.String("export", "", "write an HTML transcript of this session to stdout and exit")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	path := *dbPath
	if path == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
		}
		if err := os.MkdirAll(filepath.Join(cfgDir, "counselweb"), 0755); err != nil {
			log.Fatal(fmt.Errorf("error creating config directory: %w", err))
		}
		path = filepath.Join(cfgDir, "counselweb", "chat.db")
	}

	store, err := services.NewBoltDB(path)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()

	switch {
	case *list:
		listSessions(ctx, store)
		return
	case *deleteID != "":
		if err := store.DeleteSession(ctx, *deleteID); err != nil {
			log.Fatal(err)
		}
		return
	case *exportID != "":
		transcript, err := chat.Transcript(ctx, store, *exportID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(transcript)
		return
	}

	client := stream.NewClient(*server+"/api/chat", logger)
	orch := chat.NewOrchestrator(store, client, stderrNotifier{}, *style, os.Getenv("OPENAI_API_KEY"), logger)

	if *newSession {
		if _, err := orch.NewSession(ctx); err != nil {
			log.Fatal(err)
		}
	}

	printHistory(ctx, store)
	runREPL(ctx, orch)
}

func listSessions(ctx context.Context, store chat.Store) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		log.Fatal(err)
	}
	current, err := store.CurrentSessionID(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, session := range sessions {
		marker := " "
		if session.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  (%s)\n",
			marker, session.ID, session.Title, session.UpdatedAt.Format("Jan 2, 3:04 PM"))
	}
}

func printHistory(ctx context.Context, store chat.Store) {
	sessionID, err := store.CurrentSessionID(ctx)
	if err != nil || sessionID == "" {
		return
	}
	messages, err := store.Messages(ctx, sessionID)
	if err != nil {
		return
	}
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			fmt.Printf("> %s\n", msg.Content)
		case models.RoleAssistant:
			fmt.Printf("%s\n\n", msg.Content)
		}
	}
}

func runREPL(ctx context.Context, orch *chat.Orchestrator) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := scanner.Text()
		if text == "" {
			continue
		}

		// An interrupt during generation cancels the stream; the partial reply stays.
		submitCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		printed := 0
		_, err := orch.Submit(submitCtx, text, func(msg models.Message) {
			fmt.Print(msg.Content[printed:])
			printed = len(msg.Content)
		})
		stop()
		fmt.Println()

		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}
}
