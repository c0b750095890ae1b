package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash failed: %v", err)
		}
		fmt.Fprintln(os.Stdout, string(hash))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed:", err)
	}

	log.Println("Creating rooms...")
	created := 0
	for _, r := range seedRooms() {
		room := r
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&room)
		if res.Error != nil {
			log.Fatalf("create room %q: %v", room.Name, res.Error)
		}
		created += int(res.RowsAffected)
	}
	log.Printf("Seed completed: rooms_created=%d", created)
}

func seedRooms() []domain.Room {
	ext := func(s string) *string { return &s }
	rooms := []domain.Room{
		{ID: 1, Name: "Deluxe Double 101", TypeKey: "deluxe_double", Capacity: 2, Price: 120, TotalUnits: 1},
		{ID: 2, Name: "Deluxe Double 102", TypeKey: "deluxe_double", Capacity: 2, Price: 120, TotalUnits: 1},
		{ID: 3, Name: "Family Suite 201", TypeKey: "family_suite", Capacity: 4, Price: 210, TotalUnits: 1,
			Description: "Two bedrooms, sea view"},
		{ID: 4, Name: "Single 301", TypeKey: "single", Capacity: 1, Price: 75, TotalUnits: 1},
		{ID: 5, Name: "Apartment A", TypeKey: "apartment", Capacity: 5, Price: 260, TotalUnits: 1,
			Source: domain.SourceChannel, ExternalRoomID: ext("apt-a")},
		{ID: 6, Name: "Apartment B", TypeKey: "apartment", Capacity: 5, Price: 260, TotalUnits: 1,
			Source: domain.SourceChannel, ExternalRoomID: ext("apt-b")},
	}
	for i := range rooms {
		rooms[i].IsActive = true
		if rooms[i].Source == "" {
			rooms[i].Source = domain.SourceLocal
		}
	}
	return rooms
}
