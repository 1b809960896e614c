package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"homieplanner/internal/adapters/auth"
)

// gentoken mints an ops API bearer token for a user id. The signing
// secret comes from -secret or the JWT_SECRET environment variable.
func main() {
	userID := flag.String("user", "", "user id to issue the token for (required)")
	expiry := flag.Duration("expiry", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT signing secret (defaults to JWT_SECRET)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "gentoken: -user is required")
		flag.Usage()
		os.Exit(2)
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "gentoken: no secret; pass -secret or set JWT_SECRET")
		os.Exit(2)
	}

	issuer, _ := auth.NewJWTTokens(*secret)
	token, err := issuer.Issue(*userID, *expiry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gentoken: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
