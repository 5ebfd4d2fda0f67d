// Package main mints bearer tokens for the /v1/admin endpoints.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/auth"
)

func main() {
	subject := flag.String("subject", "admin", "token subject, used for rate limiting and audit logs")
	ttl := flag.Duration("ttl", auth.DefaultTokenExpiry, "token lifetime")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	_ = godotenv.Load()
	key := os.Getenv("ADMIN_JWT_SIGNING_KEY")
	if key == "" {
		log.Fatal().Msg("ADMIN_JWT_SIGNING_KEY is not set")
	}

	token, expiresAt, err := auth.NewJWTService(auth.JWTConfig{SigningKey: key}).GenerateToken(*subject, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate token")
	}

	log.Info().Str("subject", *subject).Time("expires_at", expiresAt).Msg("token generated")
	fmt.Println(token)
}
