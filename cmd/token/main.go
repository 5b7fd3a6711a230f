// Command token issues an operator JWT for the backoffice API.
//
//	JWT_SECRET=... go run ./cmd/token -operator ana -ttl 12h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/josh-kwaku/backoffice/internal/auth"
)

func main() {
	operator := flag.String("operator", "", "operator name written to the token subject")
	role := flag.String("role", "operator", "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(2)
	}
	if *operator == "" {
		fmt.Fprintln(os.Stderr, "-operator is required")
		flag.Usage()
		os.Exit(2)
	}

	token, err := auth.GenerateToken(*operator, *role, secret, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
