package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/funvibe/ember/internal/config"
	"github.com/funvibe/ember/internal/modules"
)

func modulesUsage(w io.Writer) {
	fmt.Fprintf(w, `usage:
  %[1]s modules put <file.em>...   store files under their base names
  %[1]s modules get <name>         print a stored module
  %[1]s modules list               list stored modules
  %[1]s modules rm <name>...       delete stored modules
`, appName)
}

// cmdModules manages the SQLite module store named by module_db or
// EMBER_MODULE_DB.
func cmdModules(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("modules", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		modulesUsage(stderr)
		return exitUsage
	}
	cwd, _ := os.Getwd()
	cfg, err := o.load(cwd)
	if err != nil {
		return report(stderr, err)
	}
	db := cfg.ModuleDBPath()
	if db == "" {
		fmt.Fprintf(stderr, "%s: no module store configured (set module_db or %s)\n", appName, config.ModuleDBEnv)
		return exitUsage
	}
	store, err := modules.OpenStore(db)
	if err != nil {
		return report(stderr, err)
	}
	defer store.Close()

	ctx := context.Background()
	sub, rest := fs.Arg(0), fs.Args()[1:]
	switch sub {
	case "put":
		if len(rest) == 0 {
			modulesUsage(stderr)
			return exitUsage
		}
		for _, path := range rest {
			name, err := store.PutFile(ctx, path)
			if err != nil {
				return report(stderr, err)
			}
			fmt.Fprintf(stdout, "stored %s\n", name)
		}
	case "get":
		if len(rest) != 1 {
			modulesUsage(stderr)
			return exitUsage
		}
		src, err := store.Get(ctx, rest[0])
		if err != nil {
			return report(stderr, err)
		}
		fmt.Fprint(stdout, src)
	case "list":
		list, err := store.List(ctx)
		if err != nil {
			return report(stderr, err)
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		for _, info := range list {
			fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.UpdatedAt.Local().Format(time.DateTime))
		}
		tw.Flush()
	case "rm":
		if len(rest) == 0 {
			modulesUsage(stderr)
			return exitUsage
		}
		for _, name := range rest {
			if err := store.Delete(ctx, name); err != nil {
				return report(stderr, err)
			}
			fmt.Fprintf(stdout, "removed %s\n", name)
		}
	default:
		fmt.Fprintf(stderr, "%s: unknown modules command %q\n", appName, sub)
		modulesUsage(stderr)
		return exitUsage
	}
	return exitOK
}
