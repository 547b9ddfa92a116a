package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// send formats and sends an event to the WebSocket server.
func send(c *websocket.Conn, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteJSON(&event{Name: name, Data: data})
}

func main() {
	addr := flag.String("addr", "localhost:3000", "server address")
	name := flag.String("name", "Tester", "player name")
	difficulty := flag.String("difficulty", "easy", "question difficulty")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	roomCode := make(chan string, 1)

	// Read loop
	go func() {
		defer close(done)
		for {
			var ev event
			if err := c.ReadJSON(&ev); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV %s: %s", ev.Name, string(ev.Data))

			if ev.Name == "roomCreated" {
				var payload struct {
					RoomCode string `json:"roomCode"`
				}
				if err := json.Unmarshal(ev.Data, &payload); err == nil {
					roomCode <- payload.RoomCode
				}
			}
		}
	}()

	log.Println("Sending Create Room request...")
	if err := send(c, "createRoom", map[string]string{
		"playerName": *name,
		"difficulty": *difficulty,
	}); err != nil {
		log.Println("Write error:", err)
		return
	}

	var code string
	select {
	case code = <-roomCode:
		log.Printf("Room created: %s", code)
	case <-time.After(5 * time.Second):
		log.Fatal("Timed out waiting for roomCreated")
	}

	log.Println("Commands: start | question | answer | ready | next | rooms")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)

			var err error
			switch text {
			case "start":
				err = send(c, "startGame", map[string]string{"roomCode": code})
			case "question":
				err = send(c, "requestQuestion", map[string]string{"roomCode": code})
			case "answer":
				err = send(c, "submitAnswer", map[string]interface{}{
					"roomCode":  code,
					"isCorrect": true,
					"timeTaken": 2.5,
					"points":    10,
				})
			case "ready":
				err = send(c, "playerReady", map[string]string{"roomCode": code})
			case "next":
				err = send(c, "nextRound", map[string]string{"roomCode": code})
			case "rooms":
				err = send(c, "getRooms", map[string]string{})
			case "":
				continue
			default:
				log.Printf("Unknown command: %s", text)
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", text)
		}
	}
}
