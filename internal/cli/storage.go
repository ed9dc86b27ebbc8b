package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/Fwea-Go/remix-exp/internal/client"
)

type UploadFlags struct {
	Bank  string
	Name  string
	Token string
}

// Upload sends each file to the chosen bank.
func Upload(ctx context.Context, w io.Writer, flags UploadFlags, args []string) error {
	const (
		colorYellow = "\033[33m"
		colorReset  = "\033[0m"
	)

	if len(args) == 0 {
		return fmt.Errorf("no files given")
	}
	if len(args) > 1 && flags.Name != "" {
		return fmt.Errorf("--name only applies to a single file")
	}
	token := adminToken(flags.Token)
	if token == "" {
		return fmt.Errorf("no admin token, run login or set %s", TokenEnv)
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Uploading %s%s%s (%s) to %s\n", colorYellow, path, colorReset, humanize.Bytes(uint64(info.Size())), flags.Bank)
		resp, err := client.Upload(ctx, client.UploadForm{Bank: flags.Bank, Name: flags.Name}, path, token)
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}
		fmt.Fprintf(w, "Key: %s\n", resp.Key)
	}
	return nil
}

// Library prints every stored track per bank.
func Library(ctx context.Context, w io.Writer, token string, asJSON bool) error {
	resp, err := client.Library(ctx, adminToken(token))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, resp)
	}
	fmt.Fprintf(w, "Originals (%d):\n", len(resp.Originals))
	for _, k := range resp.Originals {
		fmt.Fprintf(w, "  %s\n", k)
	}
	fmt.Fprintf(w, "Remixes (%d):\n", len(resp.Remixes))
	for _, k := range resp.Remixes {
		fmt.Fprintf(w, "  %s\n", k)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
