// sync-chat CLI - command line client for sync-chat
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rudrark0109/sync-chat/clients/go/syncchat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("SYNCCHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := syncchat.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "register":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: syncchat register <username> <email> <password>")
			os.Exit(1)
		}
		user, err := client.Register(os.Args[2], os.Args[3], os.Args[4])
		exitOnError(err)
		fmt.Printf("Registered as: %s (%s)\n", user.Username, user.ID)

	case "users":
		users, err := client.Users()
		exitOnError(err)
		for _, u := range users {
			fmt.Printf("  %s  %s\n", u.ID, u.Username)
		}

	case "conversations":
		login(client)
		convs, err := client.Conversations()
		exitOnError(err)
		for _, c := range convs {
			badge := ""
			if c.UnreadCount > 0 {
				badge = fmt.Sprintf(" (%d unread)", c.UnreadCount)
			}
			fmt.Printf("  %s  %s%s\n", c.PeerID, c.Username, badge)
		}

	case "read":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: syncchat read <peer_id>")
			os.Exit(1)
		}
		login(client)
		msgs, err := client.Messages(os.Args[2])
		exitOnError(err)
		for _, m := range msgs {
			ts := time.UnixMilli(m.TS).Format("2006-01-02 15:04:05")
			from := m.SenderID
			if len(from) > 8 {
				from = from[:8]
			}
			fmt.Printf("[%s] %s: %s\n", ts, from, m.Content)
		}

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: syncchat send <peer_id> <message>")
			os.Exit(1)
		}
		login(client)
		conn, err := client.Connect()
		exitOnError(err)
		defer conn.Close()
		exitOnError(conn.Send(os.Args[2], os.Args[3], false))
		fmt.Println("Sent.")

	case "listen":
		login(client)
		conn, err := client.Connect()
		exitOnError(err)
		defer conn.Close()
		for {
			ev, err := conn.Next()
			exitOnError(err)
			switch ev.Type {
			case "new_message":
				from := ev.SenderID
				if len(from) > 8 {
					from = from[:8]
				}
				fmt.Printf("%s: %s\n", from, ev.Content)
			case "online_status_update":
				fmt.Printf("online: %d user(s)\n", len(ev.Online))
			case "new_user_joined":
				fmt.Printf("%s joined\n", ev.Username)
			}
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// login authenticates with SYNCCHAT_EMAIL / SYNCCHAT_PASSWORD.
func login(client *syncchat.Client) {
	email := os.Getenv("SYNCCHAT_EMAIL")
	password := os.Getenv("SYNCCHAT_PASSWORD")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "Set SYNCCHAT_EMAIL and SYNCCHAT_PASSWORD to authenticate")
		os.Exit(1)
	}
	_, err := client.Login(email, password)
	exitOnError(err)
}

func usage() {
	fmt.Println(`sync-chat CLI - direct messaging client

Usage: syncchat <command> [options]

Commands:
  register <username> <email> <password>   Create an account
  users                                    List all users
  conversations                            List peers with unread counts
  read <peer_id>                           Read a conversation (marks it read)
  send <peer_id> <message>                 Send a direct message
  listen                                   Stream live events

Environment:
  SYNCCHAT_URL        Server URL (default: http://localhost:8080)
  SYNCCHAT_EMAIL      Account email for authenticated commands
  SYNCCHAT_PASSWORD   Account password for authenticated commands`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
