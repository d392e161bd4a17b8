package main

import (
	"collab-gateway/auth"
	"collab-gateway/domain"
	"collab-gateway/errors"
	"collab-gateway/repositories"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BadgerFilepath string        `envconfig:"BADGER_FILEPATH" required:"true"`
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer      string        `envconfig:"JWT_ISSUER" default:"collab-gateway"`
	TokenDuration  time.Duration `envconfig:"TOKEN_DURATION" default:"24h"`
}

// tokengen creates a development user, optionally a room it owns, and
// prints a bearer token for it. The gateway must be stopped: Badger holds
// an exclusive lock.
func main() {
	id := flag.String("id", "", "principal id (required)")
	name := flag.String("name", "", "display name, defaults to the id")
	email := flag.String("email", "", "email")
	room := flag.String("room", "", "create this room owned by the principal")
	open := flag.Bool("open", false, "make the room open to every principal as editor")
	flag.Parse()

	if err := run(*id, *name, *email, *room, *open); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(id, name, email, room string, open bool) error {
	if id == "" {
		return fmt.Errorf("-id is required")
	}
	if name == "" {
		name = id
	}

	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	principal := domain.Principal{ID: domain.PrincipalID(id), DisplayName: name, Email: email}
	users := repositories.NewUserRepository(db)
	err = users.CreateUser(repositories.User{ID: principal.ID, DisplayName: name, Email: email, CreatedAt: time.Now().UTC()})
	if err != nil && !stderrors.Is(err, errors.ErrUserExists) {
		return fmt.Errorf("create user: %w", err)
	}

	if room != "" {
		info := domain.RoomInfo{
			ID:         domain.RoomID(room),
			OwnerID:    principal.ID,
			Title:      room,
			Visibility: domain.VisibilityPrivate,
			CreatedAt:  time.Now().UTC(),
		}
		if open {
			info.Visibility, info.OpenRole = domain.VisibilityOpen, domain.RoleEditor
		}
		err = repositories.NewSessionRepository(db).CreateRoom(info)
		if err != nil && !stderrors.Is(err, errors.ErrRoomExists) {
			return fmt.Errorf("create room: %w", err)
		}
	}

	token, err := auth.NewTokenIssuer([]byte(config.JWTSecret), config.JWTIssuer, clock.New()).
		GenerateToken(principal, config.TokenDuration)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Println(token)
	return nil
}
