// Command apikey mints an API key for a review owner and prints it once.
//
//	apikey -owner <uuid> -name <label> [-scopes ingest,read]
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/kiranshivaraju/reviewpulse/internal/config"
	"github.com/kiranshivaraju/reviewpulse/internal/store"
	"github.com/kiranshivaraju/reviewpulse/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	keyPrefix     = "rp_"
	keyRandomSize = 16 // 32 hex chars
)

var knownScopes = []string{mw.ScopeIngest, mw.ScopeRead}

type options struct {
	ownerID uuid.UUID
	name    string
	scopes  []string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "apikey: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, *dbCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	rawKey, key, err := newAPIKey(opts, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := store.NewPostgresStore(pool).CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}

	fmt.Fprintf(out, "id:     %s\nowner:  %s\nscopes: %s\nkey:    %s\n",
		key.ID, key.OwnerID, strings.Join(key.Scopes, ","), rawKey)
	fmt.Fprintln(out, "Store this key now; it cannot be shown again.")
	return nil
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("apikey", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	owner := fs.String("owner", "", "owner UUID the key acts for (required)")
	name := fs.String("name", "", "human-readable key label (required)")
	scopes := fs.String("scopes", strings.Join(knownScopes, ","), "comma-separated scopes")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	ownerID, err := uuid.Parse(*owner)
	if err != nil || ownerID == uuid.Nil {
		return options{}, errors.New("-owner must be a non-nil UUID")
	}
	if strings.TrimSpace(*name) == "" {
		return options{}, errors.New("-name is required")
	}
	parsed, err := parseScopes(*scopes)
	if err != nil {
		return options{}, err
	}
	return options{ownerID: ownerID, name: strings.TrimSpace(*name), scopes: parsed}, nil
}

func parseScopes(raw string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		if !slices.Contains(knownScopes, s) {
			return nil, fmt.Errorf("unknown scope %q (known: %s)", s, strings.Join(knownScopes, ","))
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one scope is required")
	}
	return out, nil
}

// newAPIKey generates a raw key and the record that stores its bcrypt hash.
func newAPIKey(opts options, now time.Time) (string, *models.APIKey, error) {
	buf := make([]byte, keyRandomSize)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate random key: %w", err)
	}
	rawKey := keyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	return rawKey, &models.APIKey{
		ID:        uuid.New(),
		OwnerID:   opts.ownerID,
		Name:      opts.name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:mw.KeyPrefixLen],
		Scopes:    opts.scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
