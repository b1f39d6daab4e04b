// File: cmd/token/main.go
package main

import (
	"flag"
	"fmt"
	"log"

	"prospect-video-generator/internal/config"
	"prospect-video-generator/internal/infra/api/apiv1"
)

// Prints a bearer token for the mutating /api/v1 routes, signed with auth.secret.
func main() {
	subject := flag.String("subject", "operator", "token subject")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Auth.Secret == "" {
		log.Fatalf("auth.secret is not set; the API accepts unauthenticated requests")
	}
	tok, err := apiv1.NewAuthManager(cfg.Auth.Secret, cfg.Auth.TTL).Mint(*subject)
	if err != nil {
		log.Fatalf("mint: %v", err)
	}
	fmt.Println(tok)
}
