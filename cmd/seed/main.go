// Package main provides a tool to seed the database with demo community data.
//
// This creates a demo community, a roster of members, and their asks and
// offers, then runs match reconciliation so matches and notifications exist.
//
// Usage:
//
//	DATA_PATH=~/Reciprocity/data go run ./cmd/seed
//	DATA_PATH=~/Reciprocity/data go run ./cmd/seed --drop  # wipe first
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/reciprocityapp/reciprocity-server/internal/cascade"
	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/events"
	"github.com/reciprocityapp/reciprocity-server/internal/id"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/matcher"
	"github.com/reciprocityapp/reciprocity-server/internal/notify"
	"github.com/reciprocityapp/reciprocity-server/internal/search"
	"github.com/reciprocityapp/reciprocity-server/internal/service"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
	"github.com/reciprocityapp/reciprocity-server/internal/tags"
)

var drop = flag.Bool("drop", false, "Delete the existing data directory before seeding")

// seedMember is one row of the demo roster. Asks and offers mirror the
// kind of career-support content the product is built around.
type seedMember struct {
	Name      string
	Email     string
	AskBody   string
	AskTags   []string
	OfferBody string
	OfferTags []string
}

var roster = []seedMember{
	{
		Name:      "Alex Rivera",
		Email:     "alex@example.com",
		AskBody:   "Looking to be connected to early-stage climate tech founders, ideally on the carbon removal side.",
		AskTags:   []string{"Climate Tech", "Venture Capital"},
		OfferBody: "Happy to review pitch decks and intro classmates to seed investors I know well.",
		OfferTags: []string{"Venture Capital", "Fundraising"},
	},
	{
		Name:      "Jordan Chen",
		Email:     "jordan@example.com",
		AskBody:   "Would appreciate interview prep help for product management roles at consumer companies.",
		AskTags:   []string{"Product Management", "Interview Prep"},
		OfferBody: "I can help with fundraising strategy and connecting to climate tech operators.",
		OfferTags: []string{"Fundraising", "Climate Tech"},
	},
	{
		Name:      "Sam Taylor",
		Email:     "sam@example.com",
		AskBody:   "Need advice on evaluating competing offers, especially equity heavy ones.",
		AskTags:   []string{"Offer Evaluation"},
		OfferBody: "Glad to run mock product management interviews, I interviewed at most of the big consumer shops.",
		OfferTags: []string{"Product Management", "Interview Prep"},
	},
	{
		Name:      "Casey Morgan",
		Email:     "casey@example.com",
		AskBody:   "Searching for people in healthcare who can speak to payer-side strategy roles.",
		AskTags:   []string{"Healthcare"},
		OfferBody: "Spent six years in healthcare strategy, happy to walk through offer evaluation and compensation.",
		OfferTags: []string{"Healthcare", "Offer Evaluation"},
	},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Reciprocity/data")
	}

	if *drop {
		fmt.Printf("Removing %s\n", dataPath)
		if err := os.RemoveAll(dataPath); err != nil {
			stdlog.Fatalf("Failed to remove data directory: %v", err)
		}
	}

	fmt.Printf("Opening data directory at: %s\n", dataPath)

	log := logger.Discard()

	s, err := store.New(filepath.Join(dataPath, "store"), log.Logger)
	if err != nil {
		stdlog.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	index, err := search.NewIndex(search.Options{
		DataPath: filepath.Join(dataPath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		stdlog.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	directory := tags.NewDirectory(s, log.Logger)
	cascades := cascade.NewManager(s, index, log.Logger)
	bus := events.NewBus()
	dispatcher := notify.NewDispatcher(s, log.Logger)
	engine := matcher.NewEngine(s, index, matcher.DefaultConfig(), log.Logger)
	matches := matcher.NewService(s, engine, dispatcher, log.Logger)
	posts := service.NewPostService(s, directory, index, cascades, bus, log.Logger)

	ctx := context.Background()
	now := time.Now()

	// Demo community
	communityID := id.MustGenerate("comm")
	community := &domain.Community{
		ID:        communityID,
		Name:      "GSB Accelerate",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Communities.Create(ctx, communityID, community); err != nil {
		stdlog.Fatalf("Failed to create community: %v", err)
	}
	fmt.Printf("Created community: %s (%s)\n", community.Name, communityID)

	var askIDs []string

	for _, m := range roster {
		userID := id.MustGenerate("usr")
		user := &domain.User{
			ID:    userID,
			Email: m.Email,
			Profile: domain.Profile{
				Name: m.Name,
			},
			Communities:        []string{communityID},
			DefaultCommunityID: communityID,
			LatestActivityAt:   now,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.Users.Create(ctx, userID, user); err != nil {
			stdlog.Fatalf("Failed to create user %s: %v", m.Name, err)
		}
		fmt.Printf("\nCreated user: %s (%s)\n", m.Name, m.Email)

		ask, err := posts.CreateAsk(ctx, service.CreatePostRequest{
			OwnerID: userID,
			Body:    m.AskBody,
			Tags:    m.AskTags,
		})
		if err != nil {
			stdlog.Fatalf("Failed to create ask for %s: %v", m.Name, err)
		}
		askIDs = append(askIDs, ask.ID)
		fmt.Printf("  Ask:   %s\n", ask.ID)

		offer, err := posts.CreateOffer(ctx, service.CreatePostRequest{
			OwnerID: userID,
			Body:    m.OfferBody,
			Tags:    m.OfferTags,
		})
		if err != nil {
			stdlog.Fatalf("Failed to create offer for %s: %v", m.Name, err)
		}
		fmt.Printf("  Offer: %s\n", offer.ID)
	}

	// Reconcile every ask so matches and notifications exist without
	// waiting for the first edit.
	fmt.Println("\nReconciling matches...")
	for _, askID := range askIDs {
		if err := matches.ReconcileAsk(ctx, askID); err != nil {
			stdlog.Printf("Failed to reconcile %s: %v", askID, err)
			continue
		}

		found, err := s.ListMatchesForPost(ctx, askID)
		if err != nil {
			continue
		}
		fmt.Printf("  %s: %d matches\n", askID, len(found))
	}

	fmt.Println("\nSeeding complete!")
}
