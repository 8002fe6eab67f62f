package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

func printState(state map[string]any) {
	accent.Println("Round state")
	neutral.Printf("  active:    %v\n", state["is_active"])
	neutral.Printf("  round:     %v\n", asInt(state["round_number"]))
	neutral.Printf("  observers: %v\n", asInt(state["connected_players"]))
	if winners, ok := state["winners"].([]any); ok && len(winners) > 0 {
		accent.Println("Last winners")
		for _, w := range winners {
			row, ok := w.(map[string]any)
			if !ok {
				continue
			}
			neutral.Printf("  #%d %s (%s) %.2f\n", asInt(row["rank"]), row["username"], row["roll_number"], asFloat(row["balance"]))
		}
	}
}

func printItems(items []map[string]any) {
	accent.Printf("%-4s %-28s %-14s %10s %10s %6s %s\n", "ID", "NAME", "CATEGORY", "BASE", "PRICE", "STOCK", "STATUS")
	for _, item := range items {
		status := ""
		if soldOut, ok := item["is_sold_out"].(bool); ok && soldOut {
			status = "SOLD OUT"
		}
		neutral.Printf("%-4d %-28s %-14s %10.2f %10.2f %6d %s\n",
			asInt(item["id"]), item["name"], item["category"],
			asFloat(item["base_price"]), asFloat(item["current_price"]),
			asInt(item["current_stock"]), status)
	}
}

func printLeaderboard(entries []map[string]any) {
	accent.Printf("%-4s %-24s %-12s %12s %s\n", "#", "USERNAME", "ROLL", "BALANCE", "DONE")
	for i, entry := range entries {
		done := ""
		if finished, ok := entry["is_finished"].(bool); ok && finished {
			done = "yes"
		}
		neutral.Printf("%-4d %-24s %-12s %12.2f %s\n",
			i+1, entry["username"], entry["roll_number"], asFloat(entry["balance"]), done)
	}
}

func printStopResult(result map[string]any) {
	winners, _ := result["winners"].([]any)
	if len(winners) == 0 {
		printWarn("No winners recorded.")
		return
	}
	accent.Println("Winners")
	for _, w := range winners {
		row, ok := w.(map[string]any)
		if !ok {
			continue
		}
		neutral.Printf("  #%d %s (%s) %.2f\n", asInt(row["rank"]), row["username"], row["roll_number"], asFloat(row["balance"]))
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
