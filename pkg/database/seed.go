package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"murmur-chat/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	UserCount      int
	SeedMessages   bool
	DemoPassword   string
	BlockFirstPair bool
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		UserCount:      5,
		SeedMessages:   true,
		DemoPassword:   "Demo@123!",
		BlockFirstPair: true,
	}
}

type seedUser struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
}

// Seed populates a development database with demo users, one block
// relationship and a short conversation. Idempotent: rerunning it
// skips rows that already exist.
func Seed(cfg *SeedConfig) error {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Starting database seeding...")

	users, err := seedUsers(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	if cfg.BlockFirstPair && len(users) >= 2 {
		// users[1] blocks users[0] so blocked-send paths can be exercised locally
		if err := seedBlock(ctx, users[1].ID, users[0].ID); err != nil {
			return fmt.Errorf("failed to seed block: %w", err)
		}
	}

	if cfg.SeedMessages && len(users) >= 4 {
		if err := seedConversation(ctx, users[2], users[3]); err != nil {
			return fmt.Errorf("failed to seed messages: %w", err)
		}
	}

	log.Printf("Seeding complete: %d users", len(users))
	return nil
}

func seedUsers(ctx context.Context, cfg *SeedConfig) ([]seedUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]seedUser, 0, cfg.UserCount)
	for i := 0; i < cfg.UserCount; i++ {
		u := seedUser{
			Username:    fmt.Sprintf("demo%d", i+1),
			DisplayName: fmt.Sprintf("Demo User %d", i+1),
		}

		row := DB.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, u.Username)
		if err := row.Scan(&u.ID); err == nil {
			users = append(users, u)
			continue
		}

		u.ID = uuid.New()
		_, err := DB.ExecContext(ctx,
			`INSERT INTO users (id, username, display_name, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, NOW())`,
			u.ID, u.Username, u.DisplayName, string(hash))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func seedBlock(ctx context.Context, owner, blocked uuid.UUID) error {
	_, err := DB.ExecContext(ctx,
		`INSERT INTO user_blocks (user_id, blocked_user_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT DO NOTHING`,
		owner, blocked)
	return err
}

func seedConversation(ctx context.Context, a, b seedUser) error {
	var count int
	row := DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)`,
		a.ID, b.ID)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	bodies := []struct {
		sender   uuid.UUID
		receiver uuid.UUID
		body     string
	}{
		{a.ID, b.ID, "hey, are you around?"},
		{b.ID, a.ID, "yep, just got back"},
		{a.ID, b.ID, "cool, call you in a bit"},
	}

	// All or nothing: a partial conversation would survive reruns because
	// of the count guard above.
	base := time.Now().UTC().Add(-10 * time.Minute)
	return repository.WithTx(ctx, DB, func(tx repository.DBTX) error {
		for i, m := range bodies {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO messages (id, sender_id, receiver_id, body, kind, created_at)
				 VALUES ($1, $2, $3, $4, 'text', $5)`,
				uuid.New(), m.sender, m.receiver, m.body, base.Add(time.Duration(i)*time.Minute))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
