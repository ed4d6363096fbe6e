// Command tooltoken mints a bearer token that lets an orchestrator call the
// ledger tools.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/eaglebank/servicepay/shared/middleware"
)

func main() {
	callerID := flag.String("caller", "", "Caller identifier embedded in the token (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *callerID == "" {
		log.Fatal("--caller flag is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	token, err := middleware.IssueToken([]byte(secret), *callerID, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
