package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/Fwea-Go/remix-exp/internal/client"
	"github.com/Fwea-Go/remix-exp/pkg/api"
)

type PlaylistFlags struct {
	Originals string
	Remixes   string
	Shuffle   bool
	Auto      bool
	JSON      bool
}

type GenerateFlags struct {
	Originals string
	Remixes   string
	DryRun    bool
	Token     string
	JSON      bool
}

// Playlist prints the pairs the server currently resolves.
func Playlist(ctx context.Context, w io.Writer, flags PlaylistFlags) error {
	resp, err := client.Playlist(ctx, client.PlaylistQuery{
		Originals: flags.Originals,
		Remixes:   flags.Remixes,
		Shuffle:   flags.Shuffle,
		Auto:      flags.Auto,
	})
	if err != nil {
		return err
	}
	if flags.JSON {
		return printJSON(w, resp)
	}
	return printPairs(w, resp.Pairs)
}

// Generate builds the manifest on the server and commits it when the
// token is accepted.
func Generate(ctx context.Context, w io.Writer, flags GenerateFlags) error {
	resp, err := client.Generate(ctx, client.PlaylistQuery{
		Originals: flags.Originals,
		Remixes:   flags.Remixes,
		DryRun:    flags.DryRun,
	}, adminToken(flags.Token))
	if err != nil {
		return err
	}
	if flags.JSON {
		return printJSON(w, resp)
	}

	m := resp.Manifest
	fmt.Fprintf(w, "originals: %d  remixes: %d  pairs: %d\n", len(m.Originals), len(m.Remixes), len(m.Pairs))
	if resp.Wrote {
		fmt.Fprintf(w, "wrote %s (%s)\n", resp.Key, humanize.Bytes(uint64(resp.Bytes)))
	} else {
		fmt.Fprintln(w, "preview only, nothing written")
	}
	return nil
}

func printPairs(w io.Writer, pairs []api.TrackPair) error {
	if len(pairs) == 0 {
		fmt.Fprintln(w, "no pairs")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tORIGINAL\tREMIX")
	for _, p := range pairs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Index, p.Title, p.OriginalURL, p.RemixURL)
	}
	return tw.Flush()
}
