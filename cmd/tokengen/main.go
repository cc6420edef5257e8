// Command tokengen issues relay tokens signed with the configured secret.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/meetrelay/internal/adapters/auth"
	"github.com/dkeye/meetrelay/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	userID := pflag.StringP("user", "u", "", "user id placed in the user_id claim")
	username := pflag.StringP("name", "n", "", "display name")
	ttl := pflag.DurationP("ttl", "t", 24*time.Hour, "token lifetime")
	secret := pflag.StringP("secret", "s", "", "signing secret (defaults to the configured one)")
	pflag.Parse()

	if *userID == "" {
		pflag.Usage()
		os.Exit(2)
	}
	if *secret == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		*secret = cfg.Secret
	}

	signer, err := auth.NewSigner(*secret)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid secret")
	}
	tok, err := signer.GenerateToken(*userID, *username, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(tok)
}
