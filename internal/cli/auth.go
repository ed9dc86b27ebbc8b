package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/gnitoahc/go-dotenv"
	"golang.org/x/term"

	"github.com/Fwea-Go/remix-exp/internal/client"
	"github.com/Fwea-Go/remix-exp/internal/server/auth"
)

// TokenEnv overrides the saved admin token.
const TokenEnv = "REMIXEXP_TOKEN"

// adminToken resolves the token for admin calls: flag, then environment,
// then the token saved by login.
func adminToken(flag string) string {
	if flag != "" {
		return flag
	}
	if tok := dotenv.Get(TokenEnv, ""); tok != "" {
		return tok
	}
	return client.ReadToken()
}

// readSecret prompts on the terminal without echo. Piped input is read
// as a single line.
func readSecret(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(w) // move to next line after input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Login saves the admin token for later commands.
func Login(w io.Writer, token string) error {
	if client.ReadToken() != "" {
		fmt.Fprintln(w, "A token is already saved. Logout first to replace it.")
		return nil
	}
	if token == "" {
		var err error
		if token, err = readSecret(w, "Admin token: "); err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("empty token")
	}
	if err := client.WriteToken(token); err != nil {
		return err
	}
	fmt.Fprintln(w, "Token saved.")
	return nil
}

// Logout removes the saved admin token.
func Logout(w io.Writer) error {
	if err := client.RemoveToken(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Token removed.")
	return nil
}

// HashToken prints the bcrypt hash to put in ADMIN_TOKEN_HASH.
func HashToken(w io.Writer, token string) error {
	if token == "" {
		var err error
		if token, err = readSecret(w, "Token to hash: "); err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("empty token")
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, hash)
	return nil
}
