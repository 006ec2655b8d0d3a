package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zarlcorp/zfill/internal/config"
	"github.com/zarlcorp/zfill/internal/engine"
	"github.com/zarlcorp/zfill/internal/filter"
	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
	"github.com/zarlcorp/zfill/internal/store"
)

// App carries what every subcommand needs.
type App struct {
	Version string
	Config  config.Config
	Client  *simplelogin.Client
	Gen     *persona.Generator
	Logger  *slog.Logger

	// Open unlocks the vault. It defaults to prompting on the terminal.
	Open func() (*store.Store, error)

	// RunTUI runs when zfill is invoked without a subcommand.
	RunTUI func(ctx context.Context) error

	// ReadKey reads an API key for "config set-key". It defaults to a
	// hidden terminal prompt.
	ReadKey func(w io.Writer) (string, error)
}

func (a *App) open() (*store.Store, error) {
	if a.Open != nil {
		return a.Open()
	}
	return OpenStore(a.Config.DataDir)
}

func (a *App) engine(s *store.Store) *engine.Engine {
	opts := []engine.Option{engine.WithGenerator(a.generator())}
	if a.Logger != nil {
		opts = append(opts, engine.WithLogger(a.Logger))
	}
	return engine.New(a.Client, s, opts...)
}

func (a *App) generator() *persona.Generator {
	if a.Gen != nil {
		return a.Gen
	}
	return persona.New()
}

// apiKey resolves the provider key: environment first, then the vault.
func (a *App) apiKey(s *store.Store) (string, error) {
	st, err := s.Settings()
	if err != nil {
		return "", err
	}
	return a.Config.ResolveAPIKey(st.APIKey), nil
}

// NewRootCommand builds the zfill command tree.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "zfill",
		Short:         "Generate form-filling personas backed by SimpleLogin aliases",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.RunTUI == nil {
				return cmd.Help()
			}
			return a.RunTUI(cmd.Context())
		},
	}

	root.AddCommand(
		newVersionCommand(a),
		newGenerateCommand(a),
		newListCommand(a),
		newForgetCommand(a),
		newSyncCommand(a),
		newPushCommand(a),
		newAliasesCommand(a),
		newRestoreCommand(a),
		newConfigCommand(a),
	)
	return root
}

func newVersionCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zfill %s\n", a.Version)
		},
	}
}

func newGenerateCommand(a *App) *cobra.Command {
	var asJSON, save, withAlias bool

	cmd := &cobra.Command{
		Use:   "generate [domain]",
		Short: "Generate a persona for a website",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := ""
			if len(args) == 1 {
				domain = args[0]
			}
			d := a.generator().Generate(domain)

			if !save && !withAlias {
				return printPersona(cmd.OutOrStdout(), d, asJSON)
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()
			e := a.engine(s)

			var saved persona.Saved
			if withAlias {
				key, err := a.apiKey(s)
				if err != nil {
					return err
				}
				saved, err = e.CreateLinked(cmd.Context(), key, d)
				if err != nil {
					return err
				}
			} else {
				saved, err = e.Save(d)
				if err != nil {
					return err
				}
			}

			if err := printPersona(cmd.OutOrStdout(), saved, asJSON); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "saved")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "save the persona to the vault")
	cmd.Flags().BoolVar(&withAlias, "alias", false, "create a SimpleLogin alias and save the persona linked to it")
	return cmd
}

func newListCommand(a *App) *cobra.Command {
	var domain, query, fields string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := filter.ParseFields(fields)
			if err != nil {
				return err
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ps, err := s.Personas()
			if err != nil {
				return err
			}
			ps = filter.Sort(filter.Personas(ps, query, fs), domain)

			out := cmd.OutOrStdout()
			if asJSON {
				if ps == nil {
					ps = []persona.Saved{}
				}
				return printJSON(out, ps)
			}
			if len(ps) == 0 {
				fmt.Fprintln(out, "no saved personas")
				return nil
			}
			for _, p := range ps {
				fmt.Fprintf(out, "  %-26s %-20s %-40s %-20s %s%s\n",
					p.ID,
					p.FullName,
					p.Email,
					p.Domain,
					p.CreatedAt.Format("2006-01-02"),
					linkMarker(p),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "sort personas for this domain first")
	cmd.Flags().StringVar(&query, "query", "", "case-insensitive search text")
	cmd.Flags().StringVar(&fields, "fields", "", "fields to search: name,email,username,domain,phone,address (default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newForgetCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete a saved persona; its alias is never synced again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := a.engine(s).Forget(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", p.ID)
			if id, ok := p.AliasID(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "alias %d will not be synced again (zfill restore %d to undo)\n", id, id)
			}
			return nil
		},
	}
}

func newSyncCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile saved personas with SimpleLogin aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := a.apiKey(s)
			if err != nil {
				return err
			}

			r := a.engine(s).Sync(cmd.Context(), key)
			if !r.OK() {
				return errors.New(r.Summary())
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Summary())
			return nil
		},
	}
}

func newPushCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Write linked personas into their alias notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := a.apiKey(s)
			if err != nil {
				return err
			}

			r := a.engine(s).Push(cmd.Context(), key)
			if r.Status != engine.StatusOK {
				return errors.New(r.Summary())
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Summary())
			if r.HasErrors() {
				return fmt.Errorf("%d notes failed", len(r.Failed()))
			}
			return nil
		},
	}
}

func newAliasesCommand(a *App) *cobra.Command {
	var query, facets string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "List SimpleLogin aliases with their local state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := filter.ParseFacets(facets)
			if err != nil {
				return err
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := a.apiKey(s)
			if err != nil {
				return err
			}

			aliases, err := a.Client.ListAliases(cmd.Context(), key)
			if err != nil {
				return err
			}
			snap, err := s.Snapshot()
			if err != nil {
				return err
			}

			views := filter.Aliases(filter.Annotate(aliases, snap.Personas, snap.Tombstones), query, fc)

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, aliasRows(views))
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "no matching aliases")
				return nil
			}
			for _, v := range views {
				fmt.Fprintf(out, "  %-8d %-40s %-9s %s\n", v.ID, v.Email, aliasState(v), linkedName(v))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "search email, note, or linked persona name")
	cmd.Flags().StringVar(&facets, "filter", "", "status filters: active,disabled,linked,unlinked,wontsync")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRestoreCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <alias-id>",
		Short: "Allow a forgotten alias to be synced again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid alias id %q", args[0])
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := a.engine(s).Restore(id)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "alias %d was not in the won't-sync list\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alias %d will be synced again\n", id)
			return nil
		},
	}
}

func newConfigCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage SimpleLogin settings",
	}

	setKey := &cobra.Command{
		Use:   "set-key",
		Short: "Validate and store the SimpleLogin API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			read := a.ReadKey
			if read == nil {
				read = readKey
			}
			key, err := read(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			key = strings.TrimSpace(key)

			if err := a.Client.ValidateKey(cmd.Context(), key); err != nil {
				return err
			}

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.Settings()
			if err != nil {
				return err
			}
			st.APIKey = key
			if err := s.SaveSettings(st); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "api key saved")
			return nil
		},
	}

	push := &cobra.Command{
		Use:       "push on|off",
		Short:     "Store personas in alias notes",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on := args[0] == "on"

			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			key, err := a.apiKey(s)
			if err != nil {
				return err
			}

			r, err := a.engine(s).SetPushEnabled(cmd.Context(), key, on)
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "push off")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "push on")
			fmt.Fprintln(cmd.OutOrStdout(), r.Summary())
			return nil
		},
	}

	cmd.AddCommand(setKey, push)
	return cmd
}

func readKey(w io.Writer) (string, error) {
	b, err := ReadPassword("SimpleLogin API key: ", w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printPersona(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		return printJSON(w, v)
	}

	var p persona.Persona
	var domain, id string
	var link *persona.Link
	switch x := v.(type) {
	case persona.Draft:
		p, domain = x.Persona, x.Domain
	case persona.Saved:
		p, domain, id, link = x.Persona, x.Domain, x.ID, x.Alias
	}

	if id != "" {
		fmt.Fprintf(w, "  id:       %s\n", id)
	}
	fmt.Fprintf(w, "  name:     %s\n", p.FullName)
	fmt.Fprintf(w, "  username: %s\n", p.Username)
	fmt.Fprintf(w, "  email:    %s\n", p.Email)
	fmt.Fprintf(w, "  phone:    %s\n", p.Phone)
	fmt.Fprintf(w, "  dob:      %s\n", p.DateOfBirth)
	fmt.Fprintf(w, "  address:  %s\n", p.Address.Full)
	if domain != "" {
		fmt.Fprintf(w, "  domain:   %s\n", domain)
	}
	if link != nil {
		fmt.Fprintf(w, "  alias:    %d\n", link.AliasID)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func linkMarker(p persona.Saved) string {
	switch {
	case p.Alias == nil:
		return ""
	case p.Alias.DeletedRemotely:
		return "  [alias deleted]"
	case !p.Alias.Enabled:
		return "  [alias disabled]"
	default:
		return "  [alias]"
	}
}

func aliasState(v filter.AliasView) string {
	switch {
	case v.Tombstoned:
		return "wontsync"
	case !v.Enabled:
		return "disabled"
	default:
		return "active"
	}
}

func linkedName(v filter.AliasView) string {
	if v.Persona == nil {
		return "-"
	}
	return v.Persona.FullName
}

type aliasRow struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Enabled    bool   `json:"enabled"`
	Note       string `json:"note,omitempty"`
	PersonaID  string `json:"persona_id,omitempty"`
	Tombstoned bool   `json:"wont_sync"`
}

func aliasRows(vs []filter.AliasView) []aliasRow {
	rows := make([]aliasRow, len(vs))
	for i, v := range vs {
		rows[i] = aliasRow{ID: v.ID, Email: v.Email, Enabled: v.Enabled, Note: v.Note, Tombstoned: v.Tombstoned}
		if v.Persona != nil {
			rows[i].PersonaID = v.Persona.ID
		}
	}
	return rows
}

// Execute runs the command tree and reports failures on stderr.
func Execute(ctx context.Context, a *App, args []string) int {
	root := NewRootCommand(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "zfill: %v\n", err)
		return 1
	}
	return 0
}
