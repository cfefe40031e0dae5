package seed

import (
	"log"

	"chatterbox/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seeder populates the database with demo data for local development.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:      db,
		factory: NewFactory(db, SeedOptions{MaxDays: 90}),
	}
}

// ClearAll wipes seeded tables in dependency order.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Clearing existing data...")
	for _, model := range []interface{}{
		&models.ChatMessage{},
		&models.Comment{},
		&models.Post{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// Seed populates the database with test data
func (s *Seeder) Seed(opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return err
		}
		users = append(users, user)
	}
	log.Printf("👤 Created %d users", len(users))

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		posts = append(posts, s.factory.BuildPost(author))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return err
	}
	log.Printf("📝 Created %d posts", len(posts))

	comments := 0
	for _, post := range posts {
		for i := 0; i < s.factory.rng.Intn(5); i++ {
			commenter := users[s.factory.rng.Intn(len(users))]
			if _, err := s.factory.CreateComment(post, commenter); err != nil {
				return err
			}
			comments++
		}
	}
	log.Printf("💬 Created %d comments", comments)

	chatLines := opts.NumUsers * 3
	for i := 0; i < chatLines; i++ {
		speaker := users[s.factory.rng.Intn(len(users))]
		if _, err := s.factory.CreateChatMessage(speaker); err != nil {
			return err
		}
	}
	log.Printf("🗨️  Created %d chat messages", chatLines)

	return nil
}
