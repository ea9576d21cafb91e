// Command roomctl drives the admin port of a running casino server.
//
//	roomctl [-addr host:port] list
//	roomctl create <game> [maxClients]
//	roomctl destroy <roomId>
//	roomctl lobby <accountId> game=count [game=count ...]
//	roomctl unlobby <accountId> <lobbyId>
//	roomctl credit <accountId> <amount>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"casino-engine/models"
	"casino-engine/server"
)

func main() {
	addr := flag.String("addr", envOr("ADMIN_ADDR", "127.0.0.1:9090"), "admin server address")
	timeout := flag.Duration("timeout", 5*time.Second, "per-command timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	command, data, err := buildCommand(args)
	if err != nil {
		pterm.Error.Println(err)
		usage()
		os.Exit(2)
	}

	client, err := server.Dial(*addr, *timeout)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer client.Close()

	resp, err := client.Do(command, data)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	if !resp.Success {
		pterm.Error.Printfln("%s: %s", command, resp.Error)
		os.Exit(1)
	}
	render(command, resp)
}

func usage() {
	pterm.Info.Println("usage: roomctl [-addr host:port] list | create <game> [maxClients] | destroy <roomId> |\n" +
		"       lobby <accountId> game=count... | unlobby <accountId> <lobbyId> | credit <accountId> <amount>")
}

func buildCommand(args []string) (string, map[string]interface{}, error) {
	switch args[0] {
	case "list":
		return "room.list", nil, nil
	case "create":
		if len(args) < 2 {
			return "", nil, fmt.Errorf("create needs a game type")
		}
		data := map[string]interface{}{"gameType": args[1]}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return "", nil, fmt.Errorf("maxClients: %w", err)
			}
			data["maxClients"] = n
		}
		return "room.create", data, nil
	case "destroy":
		if len(args) != 2 {
			return "", nil, fmt.Errorf("destroy needs a room id")
		}
		return "room.destroy", map[string]interface{}{"roomId": args[1]}, nil
	case "lobby":
		if len(args) < 3 {
			return "", nil, fmt.Errorf("lobby needs an account id and at least one game=count")
		}
		counts := make(map[string]interface{})
		for _, pair := range args[2:] {
			game, count, ok := strings.Cut(pair, "=")
			if !ok {
				return "", nil, fmt.Errorf("bad room count %q, want game=count", pair)
			}
			n, err := strconv.Atoi(count)
			if err != nil {
				return "", nil, fmt.Errorf("%s: %w", game, err)
			}
			counts[game] = n
		}
		return "lobby.create", map[string]interface{}{"accountId": args[1], "rooms": counts}, nil
	case "unlobby":
		if len(args) != 3 {
			return "", nil, fmt.Errorf("unlobby needs an account id and a lobby id")
		}
		return "lobby.destroy", map[string]interface{}{"accountId": args[1], "lobbyId": args[2]}, nil
	case "credit":
		if len(args) != 3 {
			return "", nil, fmt.Errorf("credit needs an account id and an amount")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return "", nil, fmt.Errorf("amount: %w", err)
		}
		return "account.credit", map[string]interface{}{"accountId": args[1], "amount": n, "reason": "roomctl"}, nil
	}
	return "", nil, fmt.Errorf("unknown command %q", args[0])
}

func render(command string, resp models.Response) {
	switch command {
	case "room.list":
		var body struct {
			Rooms []models.RoomSummary `json:"rooms"`
		}
		if err := remarshal(resp.Data, &body); err != nil {
			pterm.Error.Println(err)
			return
		}
		if len(body.Rooms) == 0 {
			pterm.Info.Println("No rooms")
			return
		}
		rows := pterm.TableData{{"ID", "Game", "Phase", "Players", "Waiting", "Hand"}}
		for _, r := range body.Rooms {
			rows = append(rows, []string{
				r.ID, string(r.GameType), r.Phase,
				strconv.Itoa(r.Players), strconv.Itoa(r.Waiting), strconv.Itoa(r.Hand),
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	case "lobby.create":
		var lobby struct {
			ID    string   `json:"id"`
			Owner string   `json:"owner"`
			Rooms []string `json:"rooms"`
		}
		if err := remarshal(resp.Data, &lobby); err != nil {
			pterm.Error.Println(err)
			return
		}
		pterm.Success.Printfln("Lobby %s for %s with %d rooms", lobby.ID, lobby.Owner, len(lobby.Rooms))
		items := make([]pterm.BulletListItem, len(lobby.Rooms))
		for i, id := range lobby.Rooms {
			items[i] = pterm.BulletListItem{Level: 0, Text: id}
		}
		pterm.DefaultBulletList.WithItems(items).Render()
	default:
		if resp.Data == nil {
			pterm.Success.Println(command)
			return
		}
		out, _ := json.Marshal(resp.Data)
		pterm.Success.Printfln("%s %s", command, out)
	}
}

// remarshal turns the generic response payload into a typed value.
func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
