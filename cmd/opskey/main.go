// Command opskey issues and revokes ops keys for support tooling.
//
//	opskey create -name support-desk [-format json]
//	opskey revoke -id 01J...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"

	"github.com/kidsstudy/kidsstudy/internal/auth"
	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/internal/repository"
)

type output struct {
	KeyID     string    `json:"key_id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// keyStore is the part of the repository this command needs.
type keyStore interface {
	CreateOpsKey(ctx context.Context, key *model.OpsKey) error
	GetOpsKeyByID(ctx context.Context, id string) (*model.OpsKey, error)
	RevokeOpsKey(ctx context.Context, id string) error
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	name := fs.String("name", "support", "Key name (create)")
	format := fs.String("format", "plain", "Output format: plain or json (create)")
	id := fs.String("id", "", "Key ID (revoke)")
	simple := fs.Bool("simple-protocol", os.Getenv("DB_SIMPLE_PROTOCOL") == "true", "Disable prepared statements (Supabase pooler)")
	_ = fs.Parse(os.Args[2:])

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, repository.PoolOptions{MaxConns: 1, SimpleProtocol: *simple})
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	switch cmd {
	case "create":
		err = create(ctx, repo, os.Stdout, *name, *format)
	case "revoke":
		err = revoke(ctx, repo, os.Stdout, *id)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: opskey create -name NAME [-format plain|json] | opskey revoke -id KEY_ID")
}

func create(ctx context.Context, store keyStore, w io.Writer, name, format string) error {
	format = strings.ToLower(format)
	if format != "plain" && format != "json" {
		return errors.New("invalid format; use plain or json")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}

	generated, err := auth.GenerateOpsKey()
	if err != nil {
		return fmt.Errorf("generate ops key: %w", err)
	}

	key := &model.OpsKey{
		ID:        ulid.Make().String(),
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateOpsKey(ctx, key); err != nil {
		return fmt.Errorf("create ops key: %w", err)
	}

	out := output{
		KeyID:     key.ID,
		Name:      key.Name,
		Key:       generated.Plaintext,
		KeyPrefix: key.KeyPrefix,
		CreatedAt: key.CreatedAt,
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintln(w, out.Key)
	return err
}

func revoke(ctx context.Context, store keyStore, w io.Writer, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	key, err := store.GetOpsKeyByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOpsKeyNotFound) {
			return fmt.Errorf("ops key %s not found", id)
		}
		return fmt.Errorf("get ops key: %w", err)
	}
	if key.IsRevoked() {
		return fmt.Errorf("ops key %s (%s) already revoked at %s", key.ID, key.Name, key.RevokedAt.UTC().Format(time.RFC3339))
	}

	// A concurrent revoke between the lookup and the update surfaces as not found.
	if err := store.RevokeOpsKey(ctx, id); err != nil {
		if errors.Is(err, repository.ErrOpsKeyNotFound) {
			return fmt.Errorf("ops key %s already revoked", id)
		}
		return fmt.Errorf("revoke ops key: %w", err)
	}
	_, err = fmt.Fprintf(w, "revoked %s (%s)\n", key.ID, key.Name)
	return err
}
