// Command main runs the database seeder for readit.
package main

import (
	"context"
	"flag"
	"log"

	"readit/internal/config"
	"readit/internal/database"
	"readit/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "Number of members to create")
	posts := flag.Int("posts", defaults.PostsPerSub, "Posts per community")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Maximum comments per post")
	voters := flag.Int("voters", defaults.VotersPerTarget, "Maximum voters per post or comment")
	days := flag.Int("days", defaults.MaxDays, "Spread post dates over this many days")
	clean := flag.Bool("clean", defaults.Clean, "Clear forum tables before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password at minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	communitiesOnly := flag.Bool("communities-only", false, "Only create the built-in communities")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *communitiesOnly {
		subs, err := seed.Communities(ctx, db)
		if err != nil {
			log.Fatalf("❌ Community seeding failed: %v", err)
		}
		log.Printf("✓ %d built-in communities ensured", len(subs))
		return
	}

	opts := seed.Options{
		Users:           *users,
		PostsPerSub:     *posts,
		CommentsPerPost: *comments,
		VotersPerTarget: *voters,
		MaxDays:         *days,
		Clean:           *clean,
		SkipBcrypt:      *fast,
		RandSeed:        *randSeed,
	}
	log.Printf("Target: %d users, %d posts per community, clean=%v", opts.Users, opts.PostsPerSub, opts.Clean)

	summary, err := seed.Seed(ctx, db, opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✓ %d users, %d communities, %d posts, %d comments, %d votes",
		summary.Users, summary.Subs, summary.Posts, summary.Comments, summary.Votes)
	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
