package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/room"
)

func seedCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo accounts and rooms in an empty store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *envFiles)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort

			if err := a.engine.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Seeded. Log in as admin or staff with password %q.\n", rentledger.DemoPassword)
			return nil
		},
	}
}

func verifyCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every room's ledger for inconsistencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *envFiles)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort

			problems, err := a.engine.VerifyAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				fmt.Println("All ledgers are consistent.")
				return nil
			}
			for roomID, err := range problems {
				var multi rentledger.MultiError
				if errors.As(err, &multi) {
					for _, p := range multi.Errors {
						fmt.Printf("%s\t%v\n", roomID, p)
					}
					continue
				}
				fmt.Printf("%s\t%v\n", roomID, err)
			}
			return fmt.Errorf("verify: %d rooms with problems", len(problems))
		},
	}
}

func exportCmd(envFiles *[]string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <room name>",
		Short: "Write a room's invoices to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")

			a, err := newApp(cmd.Context(), *envFiles)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort

			rooms, err := a.engine.ListRooms(cmd.Context(), room.ListOpts{Search: args[0]})
			if err != nil {
				return err
			}
			var target *room.Room
			for _, r := range rooms {
				if strings.EqualFold(r.Name, strings.TrimSpace(args[0])) {
					target = r
					break
				}
			}
			if target == nil {
				return rentledger.NotFoundError{Resource: "room", ID: args[0]}
			}

			tmp, err := os.CreateTemp(dir, "rentledger-*.xlsx")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name()) //nolint:errcheck // gone after the rename

			name, err := a.engine.ExportRoom(cmd.Context(), target.ID, tmp)
			if closeErr := tmp.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if err := os.Rename(tmp.Name(), path); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	cmd.Flags().String("out", ".", "Directory to write the workbook to")

	return cmd
}
