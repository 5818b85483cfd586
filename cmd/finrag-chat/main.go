package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"finrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", "http://localhost:9000", "Base URL of the finrag server")
	userID := flag.String("user", "", "User id to chat as")
	flag.Parse()

	if *userID == "" {
		fmt.Println("Usage: finrag-chat --user=<user_id> [--server=http://localhost:9000]")
		os.Exit(1)
	}

	client := tui.NewClient(*serverURL, *userID)
	banner := "Connected. Type to ask about your transactions."
	if ok, count, err := client.Ingested(); err != nil {
		banner = "Warning: server unreachable: " + err.Error()
	} else if !ok {
		banner = "No corpus ingested for this user yet; call /ingest first."
	} else {
		banner = fmt.Sprintf("Corpus loaded (%d transactions). Ask away.", count)
	}

	m := tui.New(client, banner)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
