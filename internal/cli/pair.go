package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Fwea-Go/remix-exp/internal/config"
	"github.com/Fwea-Go/remix-exp/internal/playlist"
	"github.com/Fwea-Go/remix-exp/internal/server"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/pairing"
)

// Pair runs the pairing engine directly against the configured store and
// shows which phase matched each pair.
func Pair(ctx context.Context, w io.Writer, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	store, err := server.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("no object store configured")
	}
	defer store.Close(context.Background())

	return printMatches(ctx, w, store, cfg.OriginalsPrefix, cfg.RemixesPrefix)
}

func printMatches(ctx context.Context, w io.Writer, l object.Lister, originalsPrefix, remixesPrefix string) error {
	matches, err := playlist.ListAndPair(ctx, l, pairing.DefaultRules(), originalsPrefix, remixesPrefix)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPHASE\tORIGINAL\tREMIX")
	for i, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, m.Phase, object.BaseName(m.Original), object.BaseName(m.Remix))
	}
	return tw.Flush()
}
