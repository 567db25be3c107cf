package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"dress-rental/internal/config"
	"dress-rental/internal/db"
	"dress-rental/internal/repositories"

	"github.com/jackc/pgx/v5"
)

// Business data, children first. Users and system settings are kept so
// operators can still log in with the configured rules afterwards.
var tables = []string{
	"rental_items",
	"online_transactions",
	"payments",
	"rentals",
	"activity_logs",
	"customers",
	"dresses",
}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Dress Rental Database")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE all customers, dresses, rentals and payments.")
	fmt.Println("Users and system settings are kept.")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)
	if strings.TrimSpace(confirm) != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg := config.Load()
	pool := db.Connect(cfg)
	defer pool.Close()

	ctx := context.Background()
	err := repositories.WithTransaction(ctx, pool, func(tx pgx.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
				return fmt.Errorf("truncate %s: %w", table, err)
			}
			fmt.Printf("  - cleared %s\n", table)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Reset failed: %v", err)
	}

	fmt.Println()
	fmt.Printf("Database %s reset.\n", cfg.Database.Name)
}
