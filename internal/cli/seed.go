package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"auctions/internal/auctionerrors"
	auction "auctions/internal/auctionService"
	auth "auctions/internal/authService"
	"auctions/internal/models"
	"auctions/internal/repository"
	"auctions/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document accepted by the seed command
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Listings []FixtureListing `yaml:"listings"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type FixtureListing struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	StartingBid string           `yaml:"starting_bid"`
	ImageURL    string           `yaml:"image_url"`
	Category    string           `yaml:"category"`
	Creator     string           `yaml:"creator"`
	Bids        []FixtureBid     `yaml:"bids"`
	Comments    []FixtureComment `yaml:"comments"`
	Closed      bool             `yaml:"closed"`
}

type FixtureBid struct {
	Bidder string `yaml:"bidder"`
	Amount string `yaml:"amount"`
}

type FixtureComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// SeedSummary counts what a seed run created
type SeedSummary struct {
	Users    int
	Listings int
	Bids     int
	Comments int
	Closed   int
}

func newSeedCommand(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and listings from a YAML fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), opts)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer f.Close()

			fixture, err := DecodeFixture(f)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := Seed(cmd.Context(), store, cfg.Auth.JWTSecret, fixture)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d listings, %d bids, %d comments (%d closed)\n",
				summary.Users, summary.Listings, summary.Bids, summary.Comments, summary.Closed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "listings.yaml", "fixture file")
	return cmd
}

// DecodeFixture parses a fixture document, rejecting unknown keys
func DecodeFixture(r io.Reader) (Fixture, error) {
	var fixture Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("seed: invalid fixture: %w", err)
	}
	return fixture, nil
}

// Seed replays a fixture through the services so every business rule applies.
// Users that already exist are reused when their password matches.
func Seed(ctx context.Context, store repository.AuctionDB, jwtSecret string, fixture Fixture) (SeedSummary, error) {
	var summary SeedSummary

	authSvc := auth.NewAuthService(store, jwtSecret, 0)
	auctionSvc := auction.NewAuctionService(store)

	actors := make(map[string]models.Actor, len(fixture.Users))
	for _, u := range fixture.Users {
		user, err := authSvc.Register(ctx, auth.RegisterInput{
			Username:     u.Username,
			Email:        u.Email,
			Password:     u.Password,
			Confirmation: u.Password,
		})
		switch {
		case errors.Is(err, auctionerrors.ErrUsernameTaken):
			if _, user, err = authSvc.Login(ctx, u.Username, u.Password); err != nil {
				return summary, fmt.Errorf("seed: user %q exists with a different password: %w", u.Username, err)
			}
		case err != nil:
			return summary, fmt.Errorf("seed: user %q: %w", u.Username, err)
		default:
			summary.Users++
		}
		actors[u.Username] = models.Actor{UserID: user.ID, Username: user.Username}
	}

	actorFor := func(username string) (models.Actor, error) {
		actor, ok := actors[username]
		if !ok {
			return models.Actor{}, fmt.Errorf("seed: unknown user %q", username)
		}
		return actor, nil
	}

	for _, l := range fixture.Listings {
		creator, err := actorFor(l.Creator)
		if err != nil {
			return summary, err
		}

		listing, err := auctionSvc.CreateListing(ctx, creator, auction.CreateListingInput{
			Title:       l.Title,
			Description: l.Description,
			StartingBid: l.StartingBid,
			ImageURL:    l.ImageURL,
			Category:    l.Category,
		})
		if err != nil {
			return summary, fmt.Errorf("seed: listing %q: %w", l.Title, err)
		}
		summary.Listings++

		for _, b := range l.Bids {
			bidder, err := actorFor(b.Bidder)
			if err != nil {
				return summary, err
			}
			if _, err := auctionSvc.PlaceBid(ctx, bidder, listing.ID, b.Amount); err != nil {
				return summary, fmt.Errorf("seed: bid %s by %q on %q: %w", b.Amount, b.Bidder, l.Title, err)
			}
			summary.Bids++
		}

		for _, c := range l.Comments {
			author, err := actorFor(c.Author)
			if err != nil {
				return summary, err
			}
			if _, err := auctionSvc.AddComment(ctx, author, listing.ID, c.Text); err != nil {
				return summary, fmt.Errorf("seed: comment by %q on %q: %w", c.Author, l.Title, err)
			}
			summary.Comments++
		}

		if l.Closed {
			if _, err := auctionSvc.CloseAuction(ctx, creator, listing.ID); err != nil {
				return summary, fmt.Errorf("seed: close %q: %w", l.Title, err)
			}
			summary.Closed++
		}
	}

	utils.Info("Fixture seeded", map[string]any{
		"users":    summary.Users,
		"listings": summary.Listings,
		"bids":     summary.Bids,
		"comments": summary.Comments,
		"closed":   summary.Closed,
	})
	return summary, nil
}
