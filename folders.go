package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

const homeFolderID = "home"

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder"},
		Short:   "List and delete folders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [folder-id]",
		Short: "List the children of a folder (default: home)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFoldersList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "shared",
		Short: "List all folders shared with the account",
		Args:  cobra.NoArgs,
		RunE:  runFoldersShared,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runFoldersDelete,
	})

	return cmd
}

func runFoldersList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id := homeFolderID
	if len(args) == 1 {
		id = args[0]
	}

	return withSession(ctx, cc, func(s *Session) error {
		env, err := s.Client.ListFolder(ctx, id)
		if err != nil {
			return err
		}

		return printFolders(cmd, cc, env)
	})
}

func runFoldersShared(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	return withSession(ctx, cc, func(s *Session) error {
		env, err := s.Client.SharedFolders(ctx)
		if err != nil {
			return err
		}

		return printFolders(cmd, cc, env)
	})
}

func runFoldersDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	return withSession(ctx, cc, func(s *Session) error {
		env, err := s.Client.DeleteFolder(ctx, args[0])
		s.Record(ctx, opFolderDelete, args[0], env, err)

		if err != nil {
			return err
		}

		if err := envelopeResult(env, "folder", "delete"); err != nil {
			return err
		}

		cc.Statusf("Deleted folder %s.\n", args[0])

		return nil
	})
}

func printFolders(cmd *cobra.Command, cc *CLIContext, env *sharefile.Envelope) error {
	if err := envelopeResult(env, "folder", "list"); err != nil {
		return err
	}

	folders, err := sharefile.Folders(env)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), folders)
	}

	rows := make([][]string, 0, len(folders))
	for _, f := range folders {
		rows = append(rows, []string{f.ID, f.DisplayName, f.Type, formatSize(f.Size), f.CreatedBy})
	}

	printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "TYPE", "SIZE", "OWNER"}, rows)

	return nil
}
