package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/purc-go/purc/internal/atom"
)

var bucketNames = map[string]atom.Bucket{
	"default":  atom.BucketDefault,
	"user":     atom.BucketUser,
	"except":   atom.BucketExcept,
	"renderer": atom.BucketRenderer,
}

func atomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atom",
		Short: "Inspect the atom string table",
	}
	cmd.AddCommand(atomDumpCmd())
	return cmd
}

func atomDumpCmd() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump interned strings from one atom bucket",
		Long:  "Prints every live string currently interned in a bucket of a fresh atom table (default/user/except/renderer); a standalone runner has nothing interned until it resolves element tags, so this is mainly useful against a running process's table via future cross-process introspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ok := bucketNames[strings.ToLower(bucket)]
			if !ok {
				return fmt.Errorf("unknown bucket %q (want one of: default, user, except, renderer)", bucket)
			}

			table := atom.NewTable()
			strs := table.Strings(b)
			sort.Strings(strs)
			for _, s := range strs {
				fmt.Println(s)
			}
			if len(strs) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "bucket %q is empty\n", bucket)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "default", "Atom bucket to dump (default, user, except, renderer)")
	return cmd
}
