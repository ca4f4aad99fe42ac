package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"deltawatch/internal/config"
	"deltawatch/internal/infra/adapter/persistence/file"
	"deltawatch/internal/infra/adapter/persistence/postgres"
	"deltawatch/internal/infra/db"
	"deltawatch/internal/repository"
	pkgconfig "deltawatch/internal/pkg/config"
)

func storeCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "store",
		Short: "Inspect a change store",
	}
	c.AddCommand(storeShowCmd(opts))
	return c
}

// StoreOutput is the JSON form of a stored known set.
type StoreOutput struct {
	Location string   `json:"location"`
	Count    int      `json:"count"`
	IDs      []string `json:"ids"`
}

func storeShowCmd(opts *rootOptions) *cobra.Command {
	var backend, path, dsn, key, format string

	c := &cobra.Command{
		Use:   "show",
		Short: "List the item ids a store knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			var (
				store    repository.ChangeStore
				location string
			)
			switch backend {
			case config.BackendFile:
				store, location = file.NewChangeStore(path), path
			case config.BackendPostgres:
				database, err := db.Open(cmd.Context(), dsn)
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()
				store, location = postgres.NewChangeStore(database, key), "postgres:known_items/"+key
			default:
				return fmt.Errorf("unknown backend %q: expected file or postgres", backend)
			}

			opts.logger(cmd).Debug("Loading store", "location", location)
			known, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := StoreOutput{Location: location, Count: known.Len(), IDs: known.IDs()}
			w := cmd.OutOrStdout()
			if format == formatJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if _, err := fmt.Fprintf(w, "%s: %d known item(s)\n", out.Location, out.Count); err != nil {
				return err
			}
			for _, id := range out.IDs {
				if _, err := fmt.Fprintln(w, id); err != nil {
					return err
				}
			}
			return nil
		},
	}

	c.Flags().StringVar(&backend, "backend", pkgconfig.LoadEnvString("STORE_BACKEND", config.BackendFile), "store backend: file or postgres")
	c.Flags().StringVar(&path, "path", pkgconfig.LoadEnvString("STORE_PATH", "known_items.json"), "path of the file store")
	c.Flags().StringVar(&dsn, "database-url", pkgconfig.LoadEnvString("DATABASE_URL", ""), "postgres connection URL")
	c.Flags().StringVar(&key, "key", pkgconfig.LoadEnvString("STORE_KEY", "listings"), "postgres store key")
	c.Flags().StringVarP(&format, "output", "o", formatText, "output format: text or json")
	return c
}
