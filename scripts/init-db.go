package main

import (
	"fmt"
	"log"

	"soora-backend/internal/config"
	"soora-backend/internal/database"
	"soora-backend/internal/models"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Seed a demo customer with a deliverable address
	fmt.Println("Seeding demo data...")
	user := models.User{
		Name:  "Alice Lim",
		Email: "alice@example.com",
		Phone: "+6598765432",
		Role:  string(models.RoleCustomer),
	}
	if err := db.FirstOrCreate(&user, models.User{Email: user.Email}).Error; err != nil {
		log.Fatal("Failed to seed user:", err)
	}

	address := models.Address{
		UserID:     user.ID,
		Street:     "10 Raffles Place",
		Unit:       "#10-01",
		PostalCode: "048620",
	}
	if err := db.FirstOrCreate(&address, models.Address{UserID: user.ID, PostalCode: address.PostalCode}).Error; err != nil {
		log.Fatal("Failed to seed address:", err)
	}

	products := []models.Product{
		{Name: "Macallan 12 Double Cask", Brand: "Macallan", Volume: "700ml", Price: 158.00, Stock: 24},
		{Name: "Hendrick's Gin", Brand: "Hendrick's", Volume: "700ml", Price: 78.00, Stock: 40},
		{Name: "Grey Goose Vodka", Brand: "Grey Goose", Volume: "750ml", Price: 92.00, Stock: 36},
		{Name: "Moet & Chandon Imperial Brut", Brand: "Moet & Chandon", Volume: "750ml", Price: 88.00, Stock: 18},
		{Name: "Tiger Beer (24-can carton)", Brand: "Tiger", Volume: "320ml x 24", Price: 62.00, Stock: 60},
	}
	for _, p := range products {
		if err := db.FirstOrCreate(&p, models.Product{Name: p.Name}).Error; err != nil {
			log.Fatal("Failed to seed product:", err)
		}
	}

	fmt.Println("Database initialized successfully!")
}
