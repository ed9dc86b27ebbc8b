package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnitoahc/go-dotenv"
	"github.com/spf13/cobra"

	"github.com/Fwea-Go/remix-exp/internal/cli"
	"github.com/Fwea-Go/remix-exp/internal/client"
	"github.com/Fwea-Go/remix-exp/internal/config"
	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/server"
)

var (
	serverURL string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:          "remixexp",
	Short:        "Remixexp serves paired original and remix tracks.",
	Long:         `Remixexp serves paired original and remix tracks from an object store. It pairs tracks by file name, publishes a playlist manifest and streams audio with byte-range support.`,
	SilenceUsage: true,
}

// clientCmd marks commands that talk to a running server.
func clientCmd(cmd *cobra.Command) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return client.LoadBaseURL(serverURL)
	}
	return cmd
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server.",
	Long:  `Run the HTTP server. Settings come from flags, environment variables and an optional env file, in that order of precedence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger.Setup(os.Stderr, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, cfg)
	},
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Show how the stored tracks pair up.",
	Long:  `Show how the stored tracks pair up. This command reads the object store directly with the serve configuration and prints the phase that matched each pair.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger.Setup(os.Stderr, cfg.LogLevel)
		return cli.Pair(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

var playlistFlags cli.PlaylistFlags
var playlistCmd = clientCmd(&cobra.Command{
	Use:   "playlist",
	Short: "Print the current playlist.",
	Long:  `Print the current playlist as resolved by the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Playlist(cmd.Context(), cmd.OutOrStdout(), playlistFlags)
	},
})

var generateFlags cli.GenerateFlags
var generateCmd = clientCmd(&cobra.Command{
	Use:   "generate",
	Short: "Generate and store the playlist manifest.",
	Long:  `Generate and store the playlist manifest. Without an admin token, or with --dry-run, the server only returns a preview.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Generate(cmd.Context(), cmd.OutOrStdout(), generateFlags)
	},
})

var uploadFlags cli.UploadFlags
var uploadCmd = clientCmd(&cobra.Command{
	Use:   "upload [file1] [file2] ...",
	Short: "Upload tracks to a bank.",
	Long:  `Upload tracks to the originals or remixes bank. Requires an admin token.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Upload(cmd.Context(), cmd.OutOrStdout(), uploadFlags, args)
	},
})

var (
	libraryToken string
	libraryJSON  bool
)
var libraryCmd = clientCmd(&cobra.Command{
	Use:   "library",
	Short: "List stored tracks.",
	Long:  `List stored tracks in both banks. Requires an admin token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Library(cmd.Context(), cmd.OutOrStdout(), libraryToken, libraryJSON)
	},
})

var loginToken string
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save an admin token.",
	Long:  `Save an admin token for upload, library and generate. The token is prompted for when --token is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Login(cmd.OutOrStdout(), loginToken)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved admin token.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Logout(cmd.OutOrStdout())
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Print a bcrypt hash for ADMIN_TOKEN_HASH.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		}
		return cli.HashToken(cmd.OutOrStdout(), token)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, pairCmd, playlistCmd, generateCmd, uploadCmd, libraryCmd, loginCmd, logoutCmd, hashTokenCmd)

	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", dotenv.Get("REMIXEXP_SERVER", ""), "Server base URL, defaults to ~/.remixexp/base_url or "+client.BaseURL,
	)

	// ==============
	// serve and pair
	// ==============
	for _, cmd := range []*cobra.Command{serveCmd, pairCmd} {
		cmd.Flags().StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the environment")
		config.Flags(cmd.Flags())
	}

	// ========
	// playlist
	// ========
	playlistCmd.Flags().StringVar(&playlistFlags.Originals, "originals", "", "Originals prefix override")
	playlistCmd.Flags().StringVar(&playlistFlags.Remixes, "remixes", "", "Remixes prefix override")
	playlistCmd.Flags().BoolVarP(&playlistFlags.Shuffle, "shuffle", "s", false, "Shuffle the pairs")
	playlistCmd.Flags().BoolVar(&playlistFlags.Auto, "auto", false, "Ignore the stored manifest")
	playlistCmd.Flags().BoolVar(&playlistFlags.JSON, "json", false, "Print the raw response")

	// ========
	// generate
	// ========
	generateCmd.Flags().StringVar(&generateFlags.Originals, "originals", "", "Originals prefix override")
	generateCmd.Flags().StringVar(&generateFlags.Remixes, "remixes", "", "Remixes prefix override")
	generateCmd.Flags().BoolVar(&generateFlags.DryRun, "dry-run", false, "Preview without writing")
	generateCmd.Flags().StringVarP(&generateFlags.Token, "token", "t", "", "Admin token")
	generateCmd.Flags().BoolVar(&generateFlags.JSON, "json", false, "Print the raw response")

	// ======
	// upload
	// ======
	uploadCmd.Flags().StringVarP(&uploadFlags.Bank, "bank", "b", "originals", "Target bank: originals or remixes")
	uploadCmd.Flags().StringVarP(&uploadFlags.Name, "name", "n", "", "Stored file name, single file only")
	uploadCmd.Flags().StringVarP(&uploadFlags.Token, "token", "t", "", "Admin token")

	libraryCmd.Flags().StringVarP(&libraryToken, "token", "t", "", "Admin token")
	libraryCmd.Flags().BoolVar(&libraryJSON, "json", false, "Print the raw response")
	loginCmd.Flags().StringVarP(&loginToken, "token", "t", "", "Admin token")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
