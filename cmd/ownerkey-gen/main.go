package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Generates the bcrypt hash for OWNER_KEY_HASH from a plaintext owner key.
//
//	go run ./cmd/ownerkey-gen <key>
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <owner-key>", os.Args[0])
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(string(hash))
}
