package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/store"
)

// Флаги полей записи.
const (
	flagFirstName = "first-name"
	flagLastName  = "last-name"
	flagPhone     = "phone"
	flagEmail     = "email"
	flagRole      = "role"
	flagYes       = "yes"
)

func newUsersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage staff records on the backend",
	}
	cmd.AddCommand(
		newUsersListCommand(a),
		newUsersAddCommand(a),
		newUsersUpdateCommand(a),
		newUsersRemoveCommand(a),
	)
	return cmd
}

func newUsersListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Load and print all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			return printRecords(a.out, rt.roster.Records())
		},
	}
}

func newUsersAddCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Validate and create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.open(a.errOut)
			if err != nil {
				return err
			}
			fields := applyFieldFlags(cmd, model.UserFields{Role: model.RoleManager})

			created, err := rt.roster.Create(cmd.Context(), fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s (id %s)\n", created.FullName(), created.ID)
			return nil
		},
	}
	registerFieldFlags(cmd)
	return cmd
}

func newUsersUpdateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Validate and update a record; unset flags keep current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			current, ok := rt.roster.Record(id)
			if !ok {
				return fmt.Errorf("record %s not found", id)
			}

			updated, err := rt.roster.Edit(cmd.Context(), id, applyFieldFlags(cmd, current.Fields()))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s (id %s)\n", updated.FullName(), updated.ID)
			return nil
		},
	}
	registerFieldFlags(cmd)
	return cmd
}

func newUsersRemoveCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			rec, ok := rt.roster.Record(id)
			if !ok {
				return fmt.Errorf("record %s not found", id)
			}

			var confirmer store.Confirmer = store.ConfirmFunc(func(context.Context, model.UserRecord) bool {
				return true
			})
			if !yes {
				confirmer = promptConfirmer{in: a.in, out: a.out}
			}

			deleted, err := rt.roster.Delete(cmd.Context(), id, confirmer)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(a.out, "Deletion cancelled")
				return nil
			}
			fmt.Fprintf(a.out, "Deleted %s\n", rec.FullName())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, flagYes, "y", false, "Delete without asking")
	return cmd
}

// load собирает сервисный слой и загружает коллекцию с бэкенда.
func (a *app) load(ctx context.Context) (*runtime, error) {
	rt, err := a.open(a.errOut)
	if err != nil {
		return nil, err
	}
	if err := rt.roster.Refresh(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

// promptConfirmer спрашивает подтверждение в терминале.
// Удаление разрешают только ответы y и yes.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, rec model.UserRecord) bool {
	fmt.Fprintf(p.out, "Delete %s? [y/N] ", rec.FullName())
	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func registerFieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(flagFirstName, "", "First name (letters only)")
	f.String(flagLastName, "", "Last name (letters only)")
	f.String(flagPhone, "", "Phone number (digits only)")
	f.String(flagEmail, "", "Email")
	f.String(flagRole, string(model.RoleManager), "Role (Manager, Waiter)")
}

// applyFieldFlags переносит в fields значения явно заданных флагов.
func applyFieldFlags(cmd *cobra.Command, fields model.UserFields) model.UserFields {
	f := cmd.Flags()
	set := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	set(flagFirstName, &fields.FirstName)
	set(flagLastName, &fields.LastName)
	set(flagPhone, &fields.PhoneNumber)
	set(flagEmail, &fields.Email)
	if f.Changed(flagRole) {
		role, _ := f.GetString(flagRole)
		fields.Role = model.Role(role)
	}
	return fields
}

func printRecords(w io.Writer, records []model.UserRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIRST NAME\tLAST NAME\tPHONE\tEMAIL\tROLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.FirstName, r.LastName, r.PhoneNumber, r.Email, r.Role)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d record(s)\n", len(records))
	return nil
}
