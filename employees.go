package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/sharefile"
)

// Journal operation names.
const (
	opEmployeeCreate  = "employees.create"
	opEmployeeDelete  = "employees.delete"
	opEmployeeDisable = "employees.disable"
	opFolderDelete    = "folders.delete"
	opUpload          = "upload"
)

func newEmployeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"employee", "users"},
		Short:   "Manage employee accounts",
	}

	cmd.AddCommand(newEmployeesListCmd())
	cmd.AddCommand(newEmployeesGetCmd())
	cmd.AddCommand(newEmployeesCreateCmd())
	cmd.AddCommand(newEmployeesDeleteCmd())
	cmd.AddCommand(newEmployeesDisableCmd())

	return cmd
}

func newEmployeesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all employees of the account",
		Args:  cobra.NoArgs,
		RunE:  runEmployeesList,
	}

	cmd.Flags().String("expand", sharefile.ExpandAll, `expansion to request ("*" or "Children")`)

	return cmd
}

func newEmployeesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id-or-email>",
		Short: "Look up one employee; bare ids get the configured email domain",
		Args:  cobra.ExactArgs(1),
		RunE:  runEmployeesGet,
	}
}

func newEmployeesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an employee with the standard permission set",
		Args:  cobra.ExactArgs(1),
		RunE:  runEmployeesCreate,
	}

	cmd.Flags().String("first", "", "first name")
	cmd.Flags().String("last", "", "last name")
	cmd.Flags().String("password", "", "initial password (omit to let ShareFile send an activation)")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")

	return cmd
}

func newEmployeesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id-or-email>",
		Short: "Delete an employee, optionally reassigning their content",
		Long: `Delete an employee. Deleting an employee that does not exist succeeds.
With --reassign-to the employee's folders are handed to the holding account,
which must exist or nothing is deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: runEmployeesDelete,
	}

	cmd.Flags().String("reassign-to", "", "holding account that receives the employee's content")
	cmd.Flags().Bool("partial", false, "use the partial delete operation instead of a complete delete")

	return cmd
}

func newEmployeesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:        "disable <user-id>",
		Short:      "Rename a user to mark them disabled",
		Deprecated: "rename-based disabling is kept for old scripts; prefer 'employees delete --reassign-to'",
		Args:       cobra.ExactArgs(1),
		RunE:       runEmployeesDisable,
	}
}

func runEmployeesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	expand, _ := cmd.Flags().GetString("expand")

	return withSession(ctx, cc, func(s *Session) error {
		list, err := s.Client.ListEmployees(ctx, expand)
		if err != nil {
			return err
		}

		if cc.Flags.JSON {
			return printJSON(cmd.OutOrStdout(), list)
		}

		rows := make([][]string, 0, len(list.Value))
		for _, e := range list.Value {
			rows = append(rows, []string{e.ID, e.Email, e.FirstName, e.LastName, e.Company})
		}

		printTable(cmd.OutOrStdout(), []string{"ID", "EMAIL", "FIRST", "LAST", "COMPANY"}, rows)
		cc.Statusf("%d employees\n", len(list.Value))

		return nil
	})
}

func runEmployeesGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	return withSession(ctx, cc, func(s *Session) error {
		env, err := s.Client.GetEmployee(ctx, args[0])
		if err != nil {
			return err
		}

		if err := envelopeResult(env, "users", "get"); err != nil {
			return err
		}

		return printUser(cmd, cc, env)
	})
}

func runEmployeesCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")
	password, _ := cmd.Flags().GetString("password")

	return withSession(ctx, cc, func(s *Session) error {
		env, err := s.Client.CreateEmployee(ctx, args[0], first, last, password)
		s.Record(ctx, opEmployeeCreate, args[0], env, err)

		if err != nil {
			return err
		}

		if err := envelopeResult(env, "users", "create"); err != nil {
			return err
		}

		return printUser(cmd, cc, env)
	})
}

func runEmployeesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	reassign, _ := cmd.Flags().GetString("reassign-to")
	partial, _ := cmd.Flags().GetBool("partial")

	return withSession(ctx, cc, func(s *Session) error {
		opts := sharefile.DeleteOptions{ReassignTo: reassign, Partial: partial}

		env, err := s.Client.DeleteEmployee(ctx, args[0], opts)
		s.Record(ctx, opEmployeeDelete, args[0], env, err)

		if err != nil {
			return err
		}

		if err := envelopeResult(env, "users", "delete"); err != nil {
			return err
		}

		cc.Statusf("Deleted %s.\n", args[0])

		return nil
	})
}

func runEmployeesDisable(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	return withSession(ctx, cc, func(s *Session) error {
		//nolint:staticcheck // the command exists to expose the deprecated operation
		env, err := s.Client.MarkUserDisabled(ctx, args[0])
		s.Record(ctx, opEmployeeDisable, args[0], env, err)

		if err != nil {
			return err
		}

		if err := envelopeResult(env, "users", "edit"); err != nil {
			return err
		}

		cc.Statusf("Marked %s disabled.\n", args[0])

		return nil
	})
}

// printUser renders the user record carried by env.
func printUser(cmd *cobra.Command, cc *CLIContext, env *sharefile.Envelope) error {
	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), json.RawMessage(env.Value))
	}

	var u sharefile.User
	if err := env.Decode(&u); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ID:      %s\n", u.ID)
	fmt.Fprintf(w, "Email:   %s\n", u.PrimaryEmail)
	fmt.Fprintf(w, "Name:    %s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(w, "Company: %s\n", u.Company)

	return nil
}
