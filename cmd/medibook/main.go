package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/medibook-dev/medibook/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	addr := os.Getenv("MEDIBOOK_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}

	client, err := sdk.New(addr)
	if err != nil {
		log.Fatalf("Failed to build client for %s: %v", addr, err)
	}

	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	switch command {
	case "SUBMIT":
		if len(args) < 2 {
			log.Fatal("Usage: medibook SUBMIT <appointment|feedback> <json>")
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(args[1]), &fields); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		var rec any
		switch args[0] {
		case "appointment":
			rec, err = client.SubmitAppointment(fields)
		case "feedback":
			rec, err = client.SubmitFeedback(fields)
		default:
			log.Fatalf("Unknown kind: %s", args[0])
		}
		if err != nil {
			log.Fatal(err)
		}
		printJSON(rec)

	case "LIST":
		if len(args) < 1 {
			log.Fatal("Usage: medibook LIST <collection>")
		}
		login(client)
		recs, err := client.List(args[0])
		if err != nil {
			log.Fatal(err)
		}
		printJSON(recs)

	case "CLEAR":
		if len(args) < 1 {
			log.Fatal("Usage: medibook CLEAR <collection>")
		}
		login(client)
		msg, err := client.Clear(args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(msg)

	case "UNDO":
		if len(args) < 1 {
			log.Fatal("Usage: medibook UNDO <collection>")
		}
		login(client)
		restored, err := client.Undo(args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Restored %d records\n", restored)

	case "PATCH":
		if len(args) < 2 {
			log.Fatal("Usage: medibook PATCH <appointment-id> <json>")
		}
		var patch map[string]any
		if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		login(client)
		rec, err := client.UpdateAppointment(args[0], patch)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(rec)

	case "PING":
		if err := client.Ping(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("PONG")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

// login authenticates the admin session from the environment before any
// gated command runs.
func login(client *sdk.Client) {
	user := os.Getenv("MEDIBOOK_ADMIN_USER")
	pass := os.Getenv("MEDIBOOK_ADMIN_PASSWORD")
	if err := client.Login(user, pass); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
}

func printUsage() {
	fmt.Println("MediBook CLI - admin interface for medibookd")
	fmt.Println("\nUsage:")
	fmt.Println("  medibook SUBMIT <appointment|feedback> <json>")
	fmt.Println("  medibook LIST <appointments|feedbacks|payments>")
	fmt.Println("  medibook CLEAR <appointments|feedbacks>")
	fmt.Println("  medibook UNDO <appointments|feedbacks>")
	fmt.Println("  medibook PATCH <appointment-id> <json>")
	fmt.Println("  medibook PING")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  MEDIBOOK_ADDR              Server base URL (default: http://localhost:8080)")
	fmt.Println("  MEDIBOOK_ADMIN_USER        Admin username for gated commands")
	fmt.Println("  MEDIBOOK_ADMIN_PASSWORD    Admin password for gated commands")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
