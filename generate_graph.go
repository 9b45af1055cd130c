//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/split-bot/internal/bot"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

func main() {
	owed := []models.Outstanding{
		{Username: "bob", Amount: decimal.NewFromFloat(150.50), Splits: 4},
		{Username: "carol", Amount: decimal.NewFromFloat(60.00), Splits: 2},
		{Username: "dave", Amount: decimal.NewFromFloat(25.00), Splits: 1},
		{Username: "erin", Amount: decimal.NewFromFloat(12.34), Splits: 1},
	}

	chartData, err := bot.GenerateOutstandingChart(owed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Chart saved to graph.png")
}
