package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/directory"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the authorized user directory",
	}
	cmd.AddCommand(newUsersAddCmd())
	cmd.AddCommand(newUsersListCmd())
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	var (
		displayName string
		form        string
		voice       bool
	)
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add or update an authorized user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("username is required")
			}
			addressForm := directory.AddressForm(form)
			switch addressForm {
			case directory.AddressFormal, directory.AddressInformal:
			default:
				return fmt.Errorf("invalid --form %q (formal|informal)", form)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			user := directory.User{
				Username:     username,
				DisplayName:  strings.TrimSpace(displayName),
				AddressForm:  addressForm,
				VoiceEnabled: voice,
			}
			if user.DisplayName == "" {
				user.DisplayName = username
			}
			if err := st.UpsertUser(cmd.Context(), user); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "Display name used when addressing the user.")
	cmd.Flags().StringVar(&form, "form", "informal", "Address form: formal|informal.")
	cmd.Flags().BoolVar(&voice, "voice", false, "Start with voice responses enabled.")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List authorized users",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				mode := "text"
				if u.VoiceEnabled {
					mode = "voice"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tchat=%d\n",
					u.Username, u.DisplayName, u.AddressForm, mode, u.ChatID)
			}
			return nil
		},
	}
}
