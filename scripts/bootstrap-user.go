// Command bootstrap-user creates an account directly in the database, or
// signs in an existing one, and prints a session token. Useful for smoke
// testing a fresh deployment:
//
//	go run ./scripts/bootstrap-user.go -email dev@example.com -password pw
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/taskboard/taskboard/internal/auth"
	"github.com/taskboard/taskboard/internal/metrics"
	"github.com/taskboard/taskboard/internal/repository"
	"github.com/taskboard/taskboard/internal/service"
)

type output struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Created     bool      `json:"created"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		tokenSecret = flag.String("token-secret", os.Getenv("TOKEN_SECRET"), "HMAC secret shared with the API")
		tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed token")
		email       = flag.String("email", "", "Account email")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Account password")
		name        = flag.String("name", "", "Display name for a new account")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" || *tokenSecret == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL and TOKEN_SECRET are required")
		os.Exit(1)
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "-email and -password are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	tokens, err := auth.NewTokenManager([]byte(*tokenSecret), *tokenTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token manager:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := service.NewAuthService(repo, auth.NewPasswordHasher(auth.DefaultArgon2Params), tokens, metrics.NewNoop(), logger)

	out, err := ensureUser(ctx, svc, *email, *password, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.AccessToken)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureUser registers the account, or logs in when the email is taken.
func ensureUser(ctx context.Context, svc *service.AuthService, email, password, name string) (*output, error) {
	created := true
	result, err := svc.Register(ctx, service.RegisterInput{Email: email, Password: password, Name: name})
	if errors.Is(err, service.ErrConflict) {
		created = false
		result, err = svc.Login(ctx, service.LoginInput{Email: email, Password: password})
		if errors.Is(err, service.ErrInvalidCredentials) {
			return nil, fmt.Errorf("account %s exists with a different password", email)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap user: %w", err)
	}

	return &output{
		UserID:      result.User.ID,
		Email:       result.User.Email,
		Created:     created,
		AccessToken: result.Token.Token,
		ExpiresAt:   result.Token.ExpiresAt,
	}, nil
}
