// chatcli is a terminal front end for a running chat API server. It drives
// the same conversation manager the web UI logic is specified against, which
// makes it a handy end-to-end probe for the persistence flow.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
	"github.com/nova-labs/nova-chat/server/internal/service/conversation"
	"github.com/nova-labs/nova-chat/server/pkg/client"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	addr := flag.String("addr", "http://localhost:5000", "chat API server address")
	model := flag.String("model", conversation.DefaultModel, "model id for completions")
	timeout := flag.Duration("timeout", 45*time.Second, "per-command timeout")
	flag.Parse()

	api := client.New(*addr)
	manager := conversation.NewManager(api, api)
	manager.SetModel(*model)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	manager.RefreshHistory(ctx)
	cancel()

	fmt.Printf("connected to %s (model %s)\n", *addr, manager.Model())
	fmt.Println("commands: /topic <title> /new /list /open <id> /delete <id> /model <id> /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		runCommand(ctx, manager, line)
		cancel()
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}
}

func runCommand(ctx context.Context, manager *conversation.Manager, line string) {
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/new":
		manager.NewChat()
		fmt.Println("started a new chat; set a topic with /topic")
	case "/topic":
		if err := manager.SetTopic(ctx, arg); err != nil {
			fmt.Printf("cannot set topic: %v\n", err)
			return
		}
		fmt.Printf("topic set to %q\n", manager.Title())
	case "/model":
		manager.SetModel(arg)
		fmt.Printf("model set to %s\n", manager.Model())
	case "/list":
		manager.RefreshHistory(ctx)
		printHistory(manager.History())
	case "/open":
		if err := manager.SelectSession(ctx, arg); err != nil {
			fmt.Printf("cannot open session: %v\n", err)
			return
		}
		fmt.Printf("opened %q\n", manager.Title())
		for _, msg := range manager.Messages() {
			printMessage(msg)
		}
	case "/delete":
		if err := manager.DeleteSession(ctx, arg); err != nil {
			fmt.Printf("cannot delete session: %v\n", err)
			return
		}
		fmt.Println("deleted")
	default:
		send(ctx, manager, line)
	}
}

func send(ctx context.Context, manager *conversation.Manager, content string) {
	reply, err := manager.Send(ctx, content)
	if err != nil {
		if errors.Is(err, conversation.ErrTopicRequired) {
			fmt.Println("name this chat first: /topic <title>")
			return
		}
		fmt.Printf("cannot send: %v\n", err)
		return
	}
	printMessage(reply)
}

func printMessage(msg chat.Message) {
	fmt.Printf("[%s] %s: %s\n", msg.Time, msg.Role, msg.Content)
}

func printHistory(history []chat.Session) {
	if len(history) == 0 {
		fmt.Println("no saved chats")
		return
	}
	for _, session := range history {
		fmt.Printf("%s  %-30s  %s\n", session.ID, session.Title, session.LastMessage)
	}
}
