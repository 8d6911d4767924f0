package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/ludoserver/ai"
	"github.com/wfunc/ludoserver/board"
	"github.com/wfunc/ludoserver/game"
	"github.com/wfunc/ludoserver/network"
)

type intent struct {
	Token   string `json:"token"`
	Code    string `json:"code,omitempty"`
	TokenID int    `json:"token_id,omitempty"`
	Text    string `json:"text,omitempty"`
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	register := flag.Bool("register", false, "create the account before logging in")
	local := flag.Bool("local", false, "play an offline match in this terminal")
	humans := flag.Int("humans", 1, "local mode: human seats")
	computers := flag.Int("computers", 1, "local mode: computer seats")
	flag.Parse()

	if *local {
		if err := playLocal(*humans, *computers); err != nil {
			log.Fatal(err)
		}
		return
	}
	if *user == "" || *pass == "" {
		log.Fatal("-user and -pass are required")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	tokens := make(chan string, 1)
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			if packet.MsgID == network.MsgTypeAuthResult {
				var res struct {
					Success bool   `json:"success"`
					Token   string `json:"token"`
				}
				if json.Unmarshal(packet.Data, &res) == nil && res.Success {
					select {
					case tokens <- res.Token:
					default:
					}
				}
			}
			log.Printf("<- %s: %s", network.MsgName(packet.MsgID), packet.Data)
		}
	}()

	authMsg := uint16(network.MsgTypeLogin)
	if *register {
		authMsg = network.MsgTypeRegister
	}
	if err := send(c, authMsg, map[string]string{"username": *user, "password": *pass}); err != nil {
		log.Fatalf("Write error: %v", err)
	}

	var token string
	select {
	case token = <-tokens:
	case <-done:
		return
	case <-time.After(5 * time.Second):
		log.Fatal("no auth result from server")
	}

	log.Println("Commands: create | join CODE | leave | start | roll | move N | say TEXT | quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := c.WriteMessage(websocket.BinaryMessage, mustPacket(network.MsgTypeHeartbeat)); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		case text, ok := <-lines:
			if !ok || text == "quit" {
				closeConn(c, done)
				return
			}
			msgID, req, err := parseCommand(text)
			if err != nil {
				log.Println(err)
				continue
			}
			req.Token = token
			if err := send(c, msgID, req); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func mustPacket(msgID uint16) []byte {
	packet, _ := network.EncodePacket(msgID, nil)
	return packet
}

func closeConn(c *websocket.Conn, done chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func parseCommand(text string) (uint16, intent, error) {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "create":
		return network.MsgTypeCreateRoom, intent{}, nil
	case "join":
		if arg == "" {
			return 0, intent{}, fmt.Errorf("usage: join CODE")
		}
		return network.MsgTypeJoinRoom, intent{Code: arg}, nil
	case "leave":
		return network.MsgTypeLeaveRoom, intent{}, nil
	case "start":
		return network.MsgTypeStartMatch, intent{}, nil
	case "roll":
		return network.MsgTypeRollDice, intent{}, nil
	case "move":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return 0, intent{}, fmt.Errorf("usage: move N")
		}
		return network.MsgTypeMoveToken, intent{TokenID: id}, nil
	case "say":
		return network.MsgTypeSendChat, intent{Text: arg}, nil
	default:
		return 0, intent{}, fmt.Errorf("unknown command %q", cmd)
	}
}

// playLocal runs a hot-seat match against computer seats without a server.
func playLocal(humans, computers int) error {
	var seats []game.Seat
	for i := 0; i < humans+computers && i < len(board.Colors); i++ {
		c := board.Colors[i]
		seat := game.Seat{Color: c, Name: c.String(), Controller: game.ControllerHuman}
		if i >= humans {
			seat.Controller = game.ControllerComputer
		}
		seats = append(seats, seat)
	}
	m, err := game.NewMatch(seats, game.WithDice(game.NewRandomDice(time.Now().UnixNano())))
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for m.Phase() != game.PhaseDone {
		if ai.PlayComputerTurns(m, printStep) || m.Phase() == game.PhaseDone {
			continue
		}

		p := m.CurrentPlayer()
		if m.Phase() == game.PhaseRoll {
			fmt.Printf("%s to roll (enter): ", p.Color)
		} else {
			fmt.Printf("%s rolled %d, move one of %v: ", p.Color, m.LastRoll(), m.MovableTokenIDs())
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if m.Phase() == game.PhaseRoll {
			roll, _ := m.RollDice()
			printStep(ai.Step{Roll: &roll})
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			continue
		}
		move, ok := m.MoveToken(id)
		if !ok {
			fmt.Println("token cannot move")
			continue
		}
		printStep(ai.Step{Move: &move})
	}
	fmt.Printf("%s wins!\n", m.Winner())
	return nil
}

func printStep(step ai.Step) {
	switch {
	case step.Roll != nil:
		r := step.Roll
		fmt.Printf("  %s rolled %d", r.Color, r.Value)
		if r.Forfeit != "" {
			fmt.Printf(" (%s)", r.Forfeit)
		}
		fmt.Println()
	case step.Move != nil:
		mv := step.Move
		fmt.Printf("  %s moved token %d", mv.Color, mv.TokenID)
		for _, c := range mv.Captures {
			fmt.Printf(", captured %s %d", c.Color, c.TokenID)
		}
		if mv.Finished {
			fmt.Print(", token finished")
		}
		fmt.Println()
	}
}
