package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"subdns/internal/auth"
)

// subdns-token mints a bearer token for the HTTP API. The secret comes from
// JWT_SECRET, matching what the server was started with.
func main() {
	subject := flag.String("subject", "", "token subject, e.g. an operator or integration name (required)")
	role := flag.String("role", "admin", "caller role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	issuer := flag.String("issuer", "subdns", "token issuer claim")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "Usage: subdns-token -subject <name> [-role <role>] [-ttl <duration>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	auth.InitJWT(secret)

	token, err := auth.GenerateToken(*subject, *role, time.Now().Add(*ttl), *issuer)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
